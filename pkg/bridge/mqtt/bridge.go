package mqtt

import (
	"github.com/golang/glog"

	"github.com/serialtalk/uartchan/pkg/channel"
	"github.com/serialtalk/uartchan/pkg/looper"
)

// Topics relative to the queue's prefix.
const (
	// TopicRecv carries payloads received from the channel.
	TopicRecv = "frames/recv"
	// TopicSend accepts payloads to send down the channel.
	TopicSend = "frames/send"
	// TopicStatus carries open/closed announcements.
	TopicStatus = "status"
)

// Bridge connects one channel to a Queue. It implements
// channel.Handler; pass it to channel.New and call Bind with the
// resulting channel before Connect.
type Bridge struct {
	Queue *Queue
	Loop  *looper.Loop

	ch *channel.Channel
}

// NewBridge creates a Bridge. loop must be the loop serializing the
// channel's link, so sends triggered by broker messages run on it.
func NewBridge(q *Queue, loop *looper.Loop) *Bridge {
	return &Bridge{Queue: q, Loop: loop}
}

// Bind attaches the channel the bridge feeds.
func (b *Bridge) Bind(c *channel.Channel) {
	b.ch = c
}

// Start subscribes for outgoing payloads.
func (b *Bridge) Start() error {
	return b.Queue.Sub(TopicSend, func(_ string, payload []byte) {
		p := append([]byte(nil), payload...)
		b.Loop.Post(func() {
			if err := b.ch.Send(p); err != nil {
				// No retry here: senders watch frames/recv and status
				// and reissue on their own schedule.
				glog.Warningf("%s: dropping outgoing payload (%d bytes): %v", b.ch.Name(), len(p), err)
			}
		})
	})
}

// Opened implements channel.Handler.
func (b *Bridge) Opened(c *channel.Channel) {
	glog.Infof("%s: open", c.Name())
	b.Queue.Pub(TopicStatus, []byte("open"))
}

// FrameReceived implements channel.Handler. The payload is copied
// because it is only valid during dispatch while the publish is
// asynchronous.
func (b *Bridge) FrameReceived(c *channel.Channel, payload []byte) {
	b.Queue.Pub(TopicRecv, append([]byte(nil), payload...))
}

// FrameSent implements channel.Handler.
func (b *Bridge) FrameSent(c *channel.Channel) {
	glog.V(2).Infof("%s: frame sent", c.Name())
}

// Closed implements channel.Handler.
func (b *Bridge) Closed(c *channel.Channel) {
	glog.Infof("%s: closed", c.Name())
	b.Queue.Pub(TopicStatus, []byte("closed"))
}
