package snmp

// request is the decoded subset of an SNMPv1/v2c GetRequest/GetNextRequest
// message this agent understands: SEQUENCE{ version INTEGER, community
// OCTET STRING, PDU{ request-id, error-status, error-index, SEQUENCE OF
// varbind } }. Only the first varbind's OID is decoded; multi-varbind
// requests are out of scope.
type request struct {
	version   int32
	community []byte
	pduType   byte
	requestID int32
	oid       []byte
}

// decodeRequest walks the BER structure top-down exactly as
// snmp_decode_request does, rejecting anything malformed or carrying a
// PDU type other than GetRequest/GetNextRequest.
func decodeRequest(pkt []byte) (*request, error) {
	msgBody, _, err := expectTLV(pkt, 0, TagSequence)
	if err != nil {
		return nil, err
	}

	versionBytes, pos, err := expectTLV(msgBody, 0, TagInteger)
	if err != nil {
		return nil, err
	}
	version, err := decodeInt32(versionBytes)
	if err != nil {
		return nil, err
	}

	community, pos, err := expectTLV(msgBody, pos, TagOctetString)
	if err != nil {
		return nil, err
	}

	if pos >= len(msgBody) {
		return nil, errTruncated
	}
	pduType := msgBody[pos]
	if pduType != TagGetRequest && pduType != TagGetNextReq {
		return nil, errBadTag
	}
	pos++
	pduLen, pos, err := readLength(msgBody, pos)
	if err != nil {
		return nil, err
	}
	pduBody := msgBody[pos : pos+pduLen]

	reqIDBytes, ppos, err := expectTLV(pduBody, 0, TagInteger)
	if err != nil {
		return nil, err
	}
	requestID, err := decodeInt32(reqIDBytes)
	if err != nil {
		return nil, err
	}

	// error-status and error-index: present in the wire format but unused
	// on the way in (the agent always computes its own on the way out).
	_, ppos, err = expectTLV(pduBody, ppos, TagInteger)
	if err != nil {
		return nil, err
	}
	_, ppos, err = expectTLV(pduBody, ppos, TagInteger)
	if err != nil {
		return nil, err
	}

	vbList, _, err := expectTLV(pduBody, ppos, TagSequence)
	if err != nil {
		return nil, err
	}
	vb, _, err := expectTLV(vbList, 0, TagSequence)
	if err != nil {
		return nil, err
	}
	oid, _, err := expectTLV(vb, 0, TagObjectID)
	if err != nil {
		return nil, err
	}

	return &request{
		version:   version,
		community: community,
		pduType:   pduType,
		requestID: requestID,
		oid:       oid,
	}, nil
}

// buildResponse encodes a GetResponse PDU, pre-sizing every nested TLV
// from the inside out before writing a single byte, exactly mirroring
// snmp_build_response's two-pass (size-then-emit) structure.
func buildResponse(req *request, errStatus int32, errIndex int32, respOID []byte, value Value, haveValue bool, outCap int) ([]byte, bool) {
	valueTLVLen := 2 // NULL TLV: tag + zero length
	if errStatus == ErrNoError && haveValue {
		if value.Kind == KindInt32 {
			iLen := int32EncodedLen(value.Int32)
			valueTLVLen = 1 + lengthFieldSize(iLen) + iLen
		} else {
			valueTLVLen = 1 + lengthFieldSize(len(value.Octets)) + len(value.Octets)
		}
	}

	oidTLVLen := 1 + lengthFieldSize(len(respOID)) + len(respOID)
	varbindContentLen := oidTLVLen + valueTLVLen
	varbindTLVLen := 1 + lengthFieldSize(varbindContentLen) + varbindContentLen
	varbindListTLVLen := 1 + lengthFieldSize(varbindTLVLen) + varbindTLVLen

	reqIDPayloadLen := int32EncodedLen(req.requestID)
	errStatusPayloadLen := int32EncodedLen(errStatus)
	errIndexPayloadLen := int32EncodedLen(errIndex)

	reqIDTLVLen := 1 + lengthFieldSize(reqIDPayloadLen) + reqIDPayloadLen
	errStatusTLVLen := 1 + lengthFieldSize(errStatusPayloadLen) + errStatusPayloadLen
	errIndexTLVLen := 1 + lengthFieldSize(errIndexPayloadLen) + errIndexPayloadLen

	pduContentLen := reqIDTLVLen + errStatusTLVLen + errIndexTLVLen + varbindListTLVLen
	pduTLVLen := 1 + lengthFieldSize(pduContentLen) + pduContentLen

	versionPayloadLen := int32EncodedLen(req.version)
	versionTLVLen := 1 + lengthFieldSize(versionPayloadLen) + versionPayloadLen
	communityTLVLen := 1 + lengthFieldSize(len(req.community)) + len(req.community)

	msgContentLen := versionTLVLen + communityTLVLen + pduTLVLen
	msgTLVLen := 1 + lengthFieldSize(msgContentLen) + msgContentLen

	if msgTLVLen > outCap {
		return nil, false
	}

	w := newBuilder(outCap)
	ok := w.putTLVHeader(TagSequence, msgContentLen) &&
		w.putInt32(req.version) &&
		w.putOctets(req.community) &&
		w.putTLVHeader(TagGetResponse, pduContentLen) &&
		w.putInt32(req.requestID) &&
		w.putInt32(errStatus) &&
		w.putInt32(errIndex) &&
		w.putTLVHeader(TagSequence, varbindTLVLen) &&
		w.putTLVHeader(TagSequence, varbindContentLen) &&
		w.putOID(respOID)
	if !ok {
		return nil, false
	}

	if errStatus == ErrNoError && haveValue {
		if value.Kind == KindInt32 {
			ok = w.putInt32(value.Int32)
		} else {
			ok = w.putOctets(value.Octets)
		}
	} else {
		ok = w.putNull()
	}
	if !ok {
		return nil, false
	}

	return w.buf, true
}
