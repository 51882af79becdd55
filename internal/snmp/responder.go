package snmp

import (
	"context"
	"net"
	"strconv"

	"github.com/opsbridge/ups-snmpd/internal/constants"
	"github.com/opsbridge/ups-snmpd/internal/interfaces"
	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

// Config configures a Responder.
type Config struct {
	Addr      string // defaults to ":161"
	Community string
	Catalog   *Catalog
	Telemetry *telemetry.Snapshot
	Logger    interfaces.Logger
	Observer  interfaces.Observer
}

// Responder serves read-only SNMPv1/v2c GET/GETNEXT requests over
// UDP/161 through a context-cancellable ListenAndServe entrypoint.
type Responder struct {
	cfg     Config
	catalog *Catalog
}

// New constructs a Responder. A nil Catalog uses NewCatalog(); an empty
// Addr defaults to ":161"; an empty Community defaults to
// constants.DefaultCommunity.
func New(cfg Config) *Responder {
	if cfg.Addr == "" {
		cfg.Addr = udpAddr(constants.SNMPPort)
	}
	if cfg.Community == "" {
		cfg.Community = constants.DefaultCommunity
	}
	if cfg.Observer == nil {
		cfg.Observer = interfaces.NoOpObserver{}
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Responder{cfg: cfg, catalog: catalog}
}

func udpAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

// ListenAndServe binds UDP/161 (or cfg.Addr) and serves requests until ctx
// is cancelled or an unrecoverable bind error occurs. It never returns a
// non-nil error for malformed per-packet input: those are silently
// dropped and the read loop continues.
func (r *Responder) ListenAndServe(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", r.cfg.Addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if r.cfg.Logger != nil {
		r.cfg.Logger.Info("snmp responder listening", "addr", r.cfg.Addr)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	rxBuf := make([]byte, constants.MaxSNMPMessageSize)
	for {
		n, src, err := conn.ReadFromUDP(rxBuf)
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				if r.cfg.Logger != nil {
					r.cfg.Logger.Debug("snmp read error", "err", err.Error())
				}
				continue
			}
		}
		r.handlePacket(conn, src, rxBuf[:n])
	}
}

func (r *Responder) handlePacket(conn *net.UDPConn, src *net.UDPAddr, pkt []byte) {
	req, err := decodeRequest(pkt)
	if err != nil {
		return
	}
	if req.version != 0 && req.version != 1 {
		return
	}
	if string(req.community) != r.cfg.Community {
		return
	}

	var (
		index       int
		found       bool
		errStatus   int32 = ErrNoError
		errIndex    int32
	)
	if req.pduType == TagGetRequest {
		index, found = r.catalog.LookupExact(req.oid)
	} else {
		index, found = r.catalog.LookupNext(req.oid)
	}

	respOID := req.oid
	var value Value
	haveValue := false

	if !found {
		errStatus = ErrNoSuchName
		errIndex = 1
	} else {
		respOID = r.catalog.OID(index)
		if r.cfg.Telemetry != nil {
			value = r.catalog.Value(index, r.cfg.Telemetry.View())
			haveValue = true
		} else {
			errStatus = ErrGenErr
			errIndex = 1
		}
	}

	out, ok := buildResponse(req, errStatus, errIndex, respOID, value, haveValue, constants.MaxSNMPMessageSize)
	if !ok {
		return
	}

	pduKind := "get"
	if req.pduType == TagGetNextReq {
		pduKind = "getnext"
	}
	r.cfg.Observer.ObserveSNMPRequest(pduKind, errStatus)

	_, _ = conn.WriteToUDP(out, src)
}
