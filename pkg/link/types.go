// Package link defines the byte transport surface the channel drives.
package link

// Dispatcher is invoked by a Link whenever input bytes become available
// or output capacity changes. A Link serializes invocations of its
// dispatcher and never re-enters it concurrently with itself.
type Dispatcher interface {
	Dispatch()
}

// DispatchFunc is the func form of Dispatcher.
type DispatchFunc func()

// Dispatch implements Dispatcher.
func (f DispatchFunc) Dispatch() {
	f()
}

// Link is a half-duplex byte transport, typically a UART. Read and
// Write never block: they move at most the bytes currently available.
type Link interface {
	// Name identifies the link for humans, e.g. "uart:/dev/ttyUSB0".
	Name() string
	// ReadAvail reports buffered input bytes ready for Read.
	ReadAvail() int
	// WriteAvail reports how many bytes Write currently accepts.
	WriteAvail() int
	// Read moves up to len(p) available bytes into p.
	Read(p []byte) int
	// Write queues up to WriteAvail bytes from p, reporting the count.
	Write(p []byte) int
	// Flush waits until queued output has reached the device.
	Flush()
	// SetDispatcher registers the active dispatcher; nil unregisters.
	// Only one dispatcher owns a link at a time.
	SetDispatcher(Dispatcher)
	// SetRecvEnabled turns input reception on or off.
	SetRecvEnabled(bool)
	// Schedule requests an asynchronous dispatcher invocation even if no
	// new input has arrived.
	Schedule()
}

// Console is implemented by links that also carry diagnostic log output
// on the same wire. Suspend and resume calls must be balanced: whoever
// suspends the console owes exactly one resume.
type Console interface {
	// ConsoleActive reports whether log output is currently routed to
	// this link.
	ConsoleActive() bool
	// SuspendConsole keeps log output off the wire until resumed.
	SuspendConsole()
	// ResumeConsole re-enables log output after SuspendConsole.
	ResumeConsole()
}
