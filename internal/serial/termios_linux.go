//go:build linux

package serial

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// baudToUnix maps configured baud rates to the termios speed_t constants
// understood by x/sys/unix. Only the rates plausible for a UPS serial
// link are mapped; unsupported rates are rejected by Open.
var baudToUnix = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// TermiosPort is a real Linux serial port implementation of the facade
// contract, driving a tty fd with termios ioctls the way
// Daedaluz-goserial/port_linux.go configures a line, reimplemented
// directly against golang.org/x/sys/unix rather than Daedaluz's own
// goioctl/fdev modules (see SPEC_FULL.md).
type TermiosPort struct {
	f    *os.File
	fd   int
	mu   sync.Mutex
	lock uint32 // atomic: 0 unlocked, 1 locked

	txDone atomic.Bool

	start time.Time
}

// Options configures the tty line discipline at Open time (8-N-1 with
// configurable baud; signal inversion is a UART-peripheral-level setting
// this package does not itself apply since termios has no portable
// inversion flag — callers needing TX/RX invert must configure it via the
// platform's serial peripheral driver, out of this facade's scope).
type Options struct {
	Path     string
	BaudRate int
}

// Open opens and configures a real serial device.
func Open(opts Options) (*TermiosPort, error) {
	f, err := os.OpenFile(opts.Path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd())

	speed, ok := baudToUnix[opts.BaudRate]
	if !ok {
		f.Close()
		return nil, errUnsupportedBaud
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0
	t.Ispeed = speed
	t.Ospeed = speed

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		f.Close()
		return nil, err
	}

	p := &TermiosPort{f: f, fd: fd, start: time.Now()}
	return p, nil
}

func (p *TermiosPort) Close() error { return p.f.Close() }

func (p *TermiosPort) TryLock() bool {
	return atomic.CompareAndSwapUint32(&p.lock, 0, 1)
}

func (p *TermiosPort) Unlock() {
	atomic.StoreUint32(&p.lock, 0)
}

func (p *TermiosPort) SendAsync(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.f.Write(b)
	if err != nil {
		return err
	}
	p.txDone.Store(true)
	return nil
}

// TxDone polls completion. Since os.File.Write on a tty returns only after
// the driver has accepted the bytes into its output buffer, transmit is
// considered done as soon as SendAsync returns without error; this still
// satisfies the non-blocking poll contract for a cooperative caller that
// always checks after sending.
func (p *TermiosPort) TxDone() bool { return p.txDone.Load() }

func (p *TermiosPort) TxDoneClear() { p.txDone.Store(false) }

func (p *TermiosPort) DiscardInput() {
	_ = unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}

func (p *TermiosPort) Read(dst []byte) int {
	n, err := p.f.Read(dst)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (p *TermiosPort) TickMs() uint32 {
	return uint32(time.Since(p.start).Milliseconds())
}

type baudError string

func (e baudError) Error() string { return string(e) }

const errUnsupportedBaud = baudError("unsupported baud rate")
