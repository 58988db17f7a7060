package serial

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/serialtalk/uartchan/pkg/link"
	"github.com/serialtalk/uartchan/pkg/looper"
)

// fakePort feeds reads from a pipe and captures writes.
type fakePort struct {
	rd *io.PipeReader
	wr *io.PipeWriter

	lock    sync.Mutex
	written bytes.Buffer
}

func newFakePort() *fakePort {
	rd, wr := io.Pipe()
	return &fakePort{rd: rd, wr: wr}
}

func (p *fakePort) Read(b []byte) (int, error) {
	return p.rd.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.rd.Close()
	return p.wr.Close()
}

func (p *fakePort) writtenBytes() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func startLink(t *testing.T) (*Link, *fakePort, func()) {
	loop := looper.New()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	port := newFakePort()
	l := newLink("uart:fake", port, loop)
	return l, port, func() {
		l.Close()
		cancel()
	}
}

func TestReceivePump(t *testing.T) {
	l, port, stop := startLink(t)
	defer stop()

	dispatched := make(chan struct{}, 16)
	l.SetDispatcher(link.DispatchFunc(func() {
		select {
		case dispatched <- struct{}{}:
		default:
		}
	}))
	l.SetRecvEnabled(true)

	go port.wr.Write([]byte("hello"))
	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("dispatcher not invoked")
	}
	require.Equal(t, 5, l.ReadAvail())
	buf := make([]byte, 8)
	require.Equal(t, 5, l.Read(buf))
	require.Equal(t, "hello", string(buf[:5]))
	require.Equal(t, 0, l.ReadAvail())
}

func TestRecvDisabledDropsInput(t *testing.T) {
	l, port, stop := startLink(t)
	defer stop()

	go port.wr.Write([]byte("noise"))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, l.ReadAvail())
}

func TestScheduleWithoutInput(t *testing.T) {
	l, _, stop := startLink(t)
	defer stop()

	dispatched := make(chan struct{}, 1)
	l.SetDispatcher(link.DispatchFunc(func() {
		select {
		case dispatched <- struct{}{}:
		default:
		}
	}))
	l.Schedule()
	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("scheduled dispatch not invoked")
	}
}

func TestWrite(t *testing.T) {
	l, port, stop := startLink(t)
	defer stop()

	require.Equal(t, 5, l.Write([]byte("frame")))
	require.Equal(t, "frame", string(port.writtenBytes()))
	require.True(t, l.WriteAvail() > 0)
}

func TestConsoleSuspendResume(t *testing.T) {
	l, port, stop := startLink(t)
	defer stop()

	require.False(t, l.ConsoleActive())
	w := l.ConsoleWriter()
	require.True(t, l.ConsoleActive())

	w.Write([]byte("log line 1\n"))
	require.Equal(t, "log line 1\n", string(port.writtenBytes()))

	l.SuspendConsole()
	w.Write([]byte("held\n"))
	require.Equal(t, "log line 1\n", string(port.writtenBytes()))

	l.ResumeConsole()
	require.Equal(t, "log line 1\nheld\n", string(port.writtenBytes()))
}

func TestConsoleHoldCap(t *testing.T) {
	l, _, stop := startLink(t)
	defer stop()

	w := l.ConsoleWriter()
	l.SuspendConsole()
	for i := 0; i < consoleBufMax; i++ {
		w.Write([]byte("ab"))
	}
	l.conLock.Lock()
	held := len(l.conBuf)
	l.conLock.Unlock()
	require.Equal(t, consoleBufMax, held)
}
