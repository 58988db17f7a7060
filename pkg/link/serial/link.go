// Package serial provides a link.Link backed by a real serial port.
package serial

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	tarm "github.com/tarm/serial"

	"github.com/serialtalk/uartchan/pkg/link"
	"github.com/serialtalk/uartchan/pkg/looper"
)

// Config holds serial port settings. Parity and stop bits are passed
// through to the driver, not interpreted here.
type Config struct {
	// Device path, e.g. "/dev/ttyUSB0" or "COM3".
	Device string
	// Baud rate; 115200 when zero.
	Baud int
	// Parity is "none", "odd" or "even"; "none" when empty.
	Parity string
	// StopBits is 1 or 2; 1 when zero.
	StopBits int
	// ReadTimeout bounds a single blocking read in the receive pump.
	ReadTimeout time.Duration
}

const (
	readChunk     = 256
	writeChunk    = 1024
	consoleBufMax = 4096
)

// Link is a link.Link over a serial port. A background pump moves
// device bytes into an rx buffer and schedules the dispatcher on the
// loop, so all dispatches for this link are serialized. Link also
// implements link.Console: diagnostic log text written through
// ConsoleWriter shares the wire and honors suspend/resume.
type Link struct {
	name string
	port io.ReadWriteCloser
	loop *looper.Loop

	lock        sync.Mutex
	rxBuf       []byte
	recvEnabled bool
	dispatcher  link.Dispatcher

	conLock      sync.Mutex
	conActive    bool
	conSuspended bool
	conBuf       []byte

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens the device and starts the receive pump. A port that cannot
// be configured is fatal: no Link is created.
func Open(cfg Config, loop *looper.Loop) (*Link, error) {
	tc := &tarm.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	}
	if tc.Baud == 0 {
		tc.Baud = 115200
	}
	if tc.ReadTimeout == 0 {
		tc.ReadTimeout = 100 * time.Millisecond
	}
	switch cfg.Parity {
	case "", "none":
		tc.Parity = tarm.ParityNone
	case "odd":
		tc.Parity = tarm.ParityOdd
	case "even":
		tc.Parity = tarm.ParityEven
	default:
		return nil, fmt.Errorf("unknown parity %q", cfg.Parity)
	}
	switch cfg.StopBits {
	case 0, 1:
		tc.StopBits = tarm.Stop1
	case 2:
		tc.StopBits = tarm.Stop2
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", cfg.StopBits)
	}
	p, err := tarm.OpenPort(tc)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	return newLink("uart:"+cfg.Device, p, loop), nil
}

func newLink(name string, port io.ReadWriteCloser, loop *looper.Loop) *Link {
	l := &Link{
		name:   name,
		port:   port,
		loop:   loop,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go l.readPump()
	return l
}

// Name implements link.Link.
func (l *Link) Name() string {
	return l.name
}

// ReadAvail implements link.Link.
func (l *Link) ReadAvail() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.rxBuf)
}

// WriteAvail implements link.Link.
func (l *Link) WriteAvail() int {
	return writeChunk
}

// Read implements link.Link.
func (l *Link) Read(p []byte) int {
	l.lock.Lock()
	defer l.lock.Unlock()
	n := copy(p, l.rxBuf)
	rest := copy(l.rxBuf, l.rxBuf[n:])
	l.rxBuf = l.rxBuf[:rest]
	return n
}

// Write implements link.Link. Writes to the device are synchronous, so
// the whole slice is accepted unless the device fails.
func (l *Link) Write(p []byte) int {
	written := 0
	for written < len(p) {
		n, err := l.port.Write(p[written:])
		written += n
		if err != nil {
			glog.Errorf("%s: write: %v", l.name, err)
			break
		}
	}
	return written
}

// Flush implements link.Link. Writes go straight to the device, so
// there is no locally buffered output to wait for.
func (l *Link) Flush() {}

// SetDispatcher implements link.Link.
func (l *Link) SetDispatcher(d link.Dispatcher) {
	l.lock.Lock()
	l.dispatcher = d
	l.lock.Unlock()
}

// SetRecvEnabled implements link.Link. While disabled, incoming device
// bytes are dropped.
func (l *Link) SetRecvEnabled(enabled bool) {
	l.lock.Lock()
	l.recvEnabled = enabled
	l.lock.Unlock()
}

// Schedule implements link.Link.
func (l *Link) Schedule() {
	l.loop.Post(l.dispatch)
}

// Close stops the pump and closes the device.
func (l *Link) Close() error {
	close(l.stopCh)
	err := l.port.Close()
	<-l.doneCh
	return err
}

func (l *Link) dispatch() {
	l.lock.Lock()
	d := l.dispatcher
	l.lock.Unlock()
	if d != nil {
		d.Dispatch()
	}
}

func (l *Link) readPump() {
	defer close(l.doneCh)
	buf := make([]byte, readChunk)
	for {
		select {
		case <-l.stopCh:
			return
		default:
		}
		n, err := l.port.Read(buf)
		if n > 0 {
			l.lock.Lock()
			if l.recvEnabled {
				l.rxBuf = append(l.rxBuf, buf[:n]...)
			}
			l.lock.Unlock()
			l.Schedule()
		}
		if err != nil && err != io.EOF {
			select {
			case <-l.stopCh:
			default:
				glog.Errorf("%s: read: %v", l.name, err)
			}
			return
		}
	}
}

// ConsoleWriter routes diagnostic log text over the same wire and marks
// the console active on this link. Text written while suspended is held
// back (up to a cap) and flushed on resume.
func (l *Link) ConsoleWriter() io.Writer {
	l.conLock.Lock()
	l.conActive = true
	l.conLock.Unlock()
	return consoleWriter{l}
}

// ConsoleActive implements link.Console.
func (l *Link) ConsoleActive() bool {
	l.conLock.Lock()
	defer l.conLock.Unlock()
	return l.conActive
}

// SuspendConsole implements link.Console.
func (l *Link) SuspendConsole() {
	l.conLock.Lock()
	l.conSuspended = true
	l.conLock.Unlock()
}

// ResumeConsole implements link.Console.
func (l *Link) ResumeConsole() {
	l.conLock.Lock()
	held := l.conBuf
	l.conBuf = nil
	l.conSuspended = false
	l.conLock.Unlock()
	if len(held) > 0 {
		l.Write(held)
	}
}

type consoleWriter struct {
	l *Link
}

func (w consoleWriter) Write(p []byte) (int, error) {
	l := w.l
	l.conLock.Lock()
	if l.conSuspended {
		l.conBuf = append(l.conBuf, p...)
		if over := len(l.conBuf) - consoleBufMax; over > 0 {
			l.conBuf = l.conBuf[over:]
		}
		l.conLock.Unlock()
		return len(p), nil
	}
	l.conLock.Unlock()
	l.Write(p)
	return len(p), nil
}
