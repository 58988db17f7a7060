package channel

// Handler receives channel lifecycle events. Callbacks run on the
// link's dispatch loop; payload slices alias the receive buffer and are
// valid only for the duration of the call.
type Handler interface {
	// Opened is raised once, when the handshake completes and the
	// channel becomes usable.
	Opened(c *Channel)
	// FrameReceived delivers a verified payload. The handler may call
	// Send in response, synchronously or later.
	FrameReceived(c *Channel, payload []byte)
	// FrameSent is raised when a payload frame accepted by Send has
	// fully drained to the link. Internal handshake echoes complete
	// silently.
	FrameSent(c *Channel)
	// Closed is raised by Close. Closing an already closed channel
	// raises it again; consumers must tolerate the repeat.
	Closed(c *Channel)
}

// Handlers is the func-field form of Handler. Nil fields are skipped.
type Handlers struct {
	OnOpened        func(*Channel)
	OnFrameReceived func(*Channel, []byte)
	OnFrameSent     func(*Channel)
	OnClosed        func(*Channel)
}

// Opened implements Handler.
func (h Handlers) Opened(c *Channel) {
	if h.OnOpened != nil {
		h.OnOpened(c)
	}
}

// FrameReceived implements Handler.
func (h Handlers) FrameReceived(c *Channel, payload []byte) {
	if h.OnFrameReceived != nil {
		h.OnFrameReceived(c, payload)
	}
}

// FrameSent implements Handler.
func (h Handlers) FrameSent(c *Channel) {
	if h.OnFrameSent != nil {
		h.OnFrameSent(c)
	}
}

// Closed implements Handler.
func (h Handlers) Closed(c *Channel) {
	if h.OnClosed != nil {
		h.OnClosed(c)
	}
}
