package channel

import (
	"github.com/golang/glog"

	"github.com/serialtalk/uartchan/pkg/frame"
	"github.com/serialtalk/uartchan/pkg/link"
)

// DefaultMaxFrameSize caps the receive buffer when Config leaves
// MaxFrameSize zero.
const DefaultMaxFrameSize = 4096

// Config holds creation-time channel settings.
type Config struct {
	// RequireHandshake keeps the channel unusable until the peer sends a
	// handshake marker.
	RequireHandshake bool
	// MaxFrameSize bounds the receive buffer: if it grows past this plus
	// two delimiters without a delimiter appearing, the whole buffer is
	// discarded.
	MaxFrameSize int
}

// Channel runs the framed messaging protocol over one Link. Create one
// per link; only one channel may own a link's dispatcher registration
// at a time.
type Channel struct {
	link    link.Link
	handler Handler

	requireHandshake bool
	maxFrameSize     int

	awaitingHandshake bool
	connected         bool
	sending           bool
	sendingUserFrame  bool
	consolePaused     bool

	recvBuf []byte
	sendBuf []byte
}

// New creates a channel bound to lnk, delivering events to handler.
func New(lnk link.Link, handler Handler, cfg Config) *Channel {
	c := &Channel{
		link:             lnk,
		handler:          handler,
		requireHandshake: cfg.RequireHandshake,
		maxFrameSize:     cfg.MaxFrameSize,
	}
	if c.maxFrameSize <= 0 {
		c.maxFrameSize = DefaultMaxFrameSize
	}
	glog.V(1).Infof("%s: channel created", c.Name())
	return c
}

// Name identifies the channel by its link.
func (c *Channel) Name() string {
	return c.link.Name()
}

// Connected reports whether the handshake has completed.
func (c *Channel) Connected() bool {
	return c.connected
}

// Connect registers the channel as the link's dispatcher and enables
// reception. Connecting an already connected channel is a no-op. The
// channel reports connected only after the peer's handshake marker
// arrives.
func (c *Channel) Connect() {
	if c.connected {
		return
	}
	c.awaitingHandshake = c.requireHandshake
	c.link.SetDispatcher(link.DispatchFunc(c.dispatch))
	c.link.SetRecvEnabled(true)
}

// Send encodes payload and queues it for transmission, then schedules a
// dispatch to start draining. It is rejected while not connected or
// while another envelope is in flight; there is no queue.
func (c *Channel) Send(payload []byte) error {
	if !c.connected {
		return ErrNotConnected
	}
	if c.sending {
		return ErrBusy
	}
	c.sendBuf = append(c.sendBuf, frame.Encode(payload)...)
	c.sending, c.sendingUserFrame = true, true

	// Keep console output off the wire until the frame drains.
	if con, ok := c.link.(link.Console); ok && con.ConsoleActive() {
		con.SuspendConsole()
		c.consolePaused = true
	} else {
		c.consolePaused = false
	}

	c.link.Schedule()
	return nil
}

// Close unregisters the channel from the link and raises Closed. A
// repeated Close raises Closed again.
func (c *Channel) Close() {
	c.link.SetDispatcher(nil)
	c.connected, c.sending, c.sendingUserFrame = false, false, false
	if c.consolePaused {
		c.consolePaused = false
		if con, ok := c.link.(link.Console); ok {
			con.ResumeConsole()
		}
	}
	if c.handler != nil {
		c.handler.Closed(c)
	}
}

// Destroy releases the buffers. The channel must be closed first.
func (c *Channel) Destroy() error {
	if c.connected {
		return ErrStillOpen
	}
	c.recvBuf, c.sendBuf = nil, nil
	return nil
}

// dispatch is the single entry point driving all protocol progress,
// invoked by the link when input arrives or output capacity changes.
func (c *Channel) dispatch() {
	if avail := c.link.ReadAvail(); avail > 0 {
		c.readInput(avail)
	}
	c.drainOutput()
}

func (c *Channel) readInput(avail int) {
	off := len(c.recvBuf)
	c.recvBuf = append(c.recvBuf, make([]byte, avail)...)
	n := c.link.Read(c.recvBuf[off:])
	c.recvBuf = c.recvBuf[:off+n]

	for {
		env, consumed := frame.Next(c.recvBuf)
		if consumed == 0 {
			break
		}
		switch env.Kind {
		case frame.KindHandshake:
			c.awaitingHandshake = false
			if !c.connected {
				c.connected = true
				glog.V(1).Infof("%s: connected", c.Name())
				if c.handler != nil {
					c.handler.Opened(c)
				}
			}
			// Every marker gets an echo, so either side can probe
			// liveness at any time.
			c.sendBuf = append(c.sendBuf, frame.EncodeMarker()...)
			c.sending = true
		case frame.KindPayload:
			if c.handler != nil {
				c.handler.FrameReceived(c, env.Payload)
			}
		case frame.KindCorrupt:
			glog.Warningf("%s: corrupted frame (%d bytes): checksum %08x, computed %08x",
				c.Name(), len(env.Payload), env.Want, env.Got)
		}
		rest := len(c.recvBuf) - consumed
		copy(c.recvBuf, c.recvBuf[consumed:])
		c.recvBuf = c.recvBuf[:rest]
	}

	if len(c.recvBuf) > c.maxFrameSize+2*len(frame.Delimiter) {
		glog.Errorf("%s: incoming frame too big (%d bytes), dropping", c.Name(), len(c.recvBuf))
		c.recvBuf = c.recvBuf[:0]
	}
	if c.awaitingHandshake && len(c.recvBuf) > len(frame.Delimiter) {
		// No payload is expected before the handshake; keep only enough
		// tail to hold a partial delimiter.
		n := len(c.recvBuf) - len(frame.Delimiter)
		copy(c.recvBuf, c.recvBuf[n:])
		c.recvBuf = c.recvBuf[:len(frame.Delimiter)]
	}
}

func (c *Channel) drainOutput() {
	if !c.sending {
		return
	}
	avail := c.link.WriteAvail()
	if avail <= 0 {
		return
	}
	n := len(c.sendBuf)
	if n > avail {
		n = avail
	}
	n = c.link.Write(c.sendBuf[:n])
	rest := len(c.sendBuf) - n
	copy(c.sendBuf, c.sendBuf[n:])
	c.sendBuf = c.sendBuf[:rest]
	if rest > 0 {
		return
	}
	c.sending = false
	if c.consolePaused {
		c.consolePaused = false
		c.link.Flush()
		if con, ok := c.link.(link.Console); ok {
			con.ResumeConsole()
		}
	}
	if c.sendingUserFrame {
		c.sendingUserFrame = false
		if c.handler != nil {
			c.handler.FrameSent(c)
		}
	}
}
