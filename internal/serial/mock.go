// Package serial implements the serial port facade: a non-blocking
// try-lock, async send, TX-done poll, non-blocking buffered read, and a
// wrap-safe monotonic millisecond tick. MockPort below is a call-tracking
// in-memory implementation for tests; the real Linux implementation lives
// in termios_linux.go, using termios ioctls reimplemented directly
// against golang.org/x/sys/unix.
package serial

import (
	"sync"
	"time"
)

// MockPort is a fully in-memory SerialPort implementation for tests. It
// feeds pre-scripted response frames to the transaction engine and
// records every sent frame for assertions.
type MockPort struct {
	mu sync.Mutex

	locked    bool
	txPending bool
	txDone    bool
	txFail    bool
	rxBuf     []byte

	start time.Time
	now   func() time.Time

	SentFrames [][]byte

	// NextRx, when non-nil, is consumed (and cleared) the next time
	// SendAsync succeeds, becoming the bytes available to Read.
	NextRx []byte
}

// NewMockPort creates a mock port whose TickMs is derived from an
// injectable clock so retry/cooldown/timeout scenarios can be driven
// deterministically.
func NewMockPort(now func() time.Time) *MockPort {
	if now == nil {
		now = time.Now
	}
	return &MockPort{now: now, start: now()}
}

func (m *MockPort) TryLock() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked {
		return false
	}
	m.locked = true
	return true
}

func (m *MockPort) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = false
}

func (m *MockPort) SendAsync(b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := append([]byte(nil), b...)
	m.SentFrames = append(m.SentFrames, frame)
	if m.txFail {
		return errSendFailed
	}
	m.txPending = true
	m.txDone = false
	if m.NextRx != nil {
		m.rxBuf = append(m.rxBuf, m.NextRx...)
		m.NextRx = nil
	}
	return nil
}

func (m *MockPort) TxDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.txPending && !m.txDone {
		m.txDone = true
		return true
	}
	return m.txDone
}

func (m *MockPort) TxDoneClear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txDone = false
	m.txPending = false
}

func (m *MockPort) DiscardInput() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rxBuf = nil
}

func (m *MockPort) Read(dst []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(dst, m.rxBuf)
	m.rxBuf = m.rxBuf[n:]
	return n
}

func (m *MockPort) TickMs() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(m.now().Sub(m.start).Milliseconds())
}

// SetSendFailure forces the next and subsequent SendAsync calls to fail,
// exercising the engine's TxStartFail path.
func (m *MockPort) SetSendFailure(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txFail = fail
}

// QueueRx arranges for b to become readable the next time a send succeeds,
// simulating the device's response to that transmit.
func (m *MockPort) QueueRx(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextRx = append([]byte(nil), b...)
}

// IsLocked reports whether the port is currently held, for test assertions.
func (m *MockPort) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

type sendError string

func (e sendError) Error() string { return string(e) }

const errSendFailed = sendError("mock send failure")
