package channel

import "errors"

var (
	// ErrNotConnected indicates Send was called before the handshake
	// completed.
	ErrNotConnected = errors.New("not connected")
	// ErrBusy indicates an envelope is already in flight. There is no
	// outgoing queue; callers wait for FrameSent and retry.
	ErrBusy = errors.New("send in progress")
	// ErrStillOpen indicates Destroy was called on a connected channel.
	ErrStillOpen = errors.New("channel still open")
)
