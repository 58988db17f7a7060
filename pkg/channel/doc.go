// Package channel implements the framed messaging channel over a
// shared serial link.
package channel

// The peer establishing a session drives the following exchange:
//
//	       HOST                 DEVICE
//	       -->  0x04"""              (host repeats until it sees """)
//	       <--  0x04"""              (device answers: ready)
//	       -->  """{request}<crc>""" (host sends a frame)
//	                                  device console output pauses here
//	       <--  """{response}<crc>"""
//	                                  console output resumes
//
// Every handshake marker received is answered with one, whether or not
// the channel was already connected, so either side can probe liveness
// at any time. The console stays paused from the moment a user frame is
// queued until its last byte drains, because the upstream consumer may
// log while handling a request and log bytes must never interleave with
// frame bytes on the wire.
//
// All channel state is owned by the link's dispatch loop: the link
// serializes dispatcher invocations, and Send/Close are expected to be
// called from that loop (upstream event handlers run on it already).
// No internal locking is performed.
