package upsbridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredError(t *testing.T) {
	err := NewJobError("Enqueue", "heartbeat", ErrCodeQueueFull, "queue at capacity")

	assert.Equal(t, "Enqueue", err.Op)
	assert.Equal(t, "heartbeat", err.JobKind)
	assert.Equal(t, ErrCodeQueueFull, err.Code)
	assert.Contains(t, err.Error(), "queue at capacity")
	assert.Contains(t, err.Error(), "op=Enqueue")
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError("Tick", ErrCodeRxTimeout, "no bytes")
	b := NewError("Tick", ErrCodeRxTimeout, "different message")
	c := NewError("Tick", ErrCodeTxTimeout, "tx")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestWrapErrorPreservesStructuredFields(t *testing.T) {
	inner := NewOIDError("Lookup", 7, ErrCodeSNMPUnknownOID, "no catalog entry")
	wrapped := WrapError("HandleGet", inner)

	require.NotNil(t, wrapped)
	assert.Equal(t, "HandleGet", wrapped.Op)
	assert.Equal(t, 7, wrapped.CatalogIndex)
	assert.Equal(t, ErrCodeSNMPUnknownOID, wrapped.Code)
}

func TestWrapErrorNilIsNil(t *testing.T) {
	assert.Nil(t, WrapError("op", nil))
}

func TestIsCode(t *testing.T) {
	err := NewError("Tick", ErrCodeBootstrapMismatch, "mismatch")
	assert.True(t, IsCode(err, ErrCodeBootstrapMismatch))
	assert.False(t, IsCode(err, ErrCodeBootstrapSanityFail))
	assert.False(t, IsCode(errors.New("plain"), ErrCodeBootstrapMismatch))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	wrapped := WrapError("op", inner)
	assert.ErrorIs(t, wrapped, wrapped)
	assert.Equal(t, inner, errors.Unwrap(wrapped))
}
