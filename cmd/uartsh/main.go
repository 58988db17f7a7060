// uartsh is an interactive operator shell for exercising a frame
// channel on a serial device: open a port, wait for the handshake, send
// payloads and watch what comes back.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/serialtalk/uartchan/pkg/channel"
	"github.com/serialtalk/uartchan/pkg/link/serial"
	"github.com/serialtalk/uartchan/pkg/looper"
)

type session struct {
	loop   *looper.Loop
	cancel context.CancelFunc
	lnk    *serial.Link
	ch     *channel.Channel
}

const sessionKey = "$session"

func sessionFrom(c *ishell.Context) *session {
	return c.Get(sessionKey).(*session)
}

// post runs fn on the session loop and waits for it, keeping channel
// state single-threaded.
func (s *session) post(fn func() error) error {
	errCh := make(chan error, 1)
	s.loop.Post(func() { errCh <- fn() })
	return <-errCh
}

func (s *session) open(sh *ishell.Shell, device string, baud int) error {
	if s.lnk != nil {
		return fmt.Errorf("already open on %s", s.lnk.Name())
	}
	loop := looper.New()
	ctx, cancel := context.WithCancel(context.Background())
	lnk, err := serial.Open(serial.Config{Device: device, Baud: baud}, loop)
	if err != nil {
		cancel()
		return err
	}
	go loop.Run(ctx)

	s.loop, s.cancel, s.lnk = loop, cancel, lnk
	s.ch = channel.New(lnk, channel.Handlers{
		OnOpened: func(c *channel.Channel) {
			sh.Printf("* %s connected\n", c.Name())
			sh.SetPrompt(c.Name() + " > ")
		},
		OnFrameReceived: func(c *channel.Channel, payload []byte) {
			sh.Printf("<< %s\n", payload)
		},
		OnFrameSent: func(c *channel.Channel) {
			sh.Println("* sent")
		},
		OnClosed: func(c *channel.Channel) {
			sh.Printf("* %s closed\n", c.Name())
		},
	}, channel.Config{RequireHandshake: true})
	s.loop.Post(s.ch.Connect)
	return nil
}

func (s *session) close() {
	if s.lnk == nil {
		return
	}
	s.post(func() error {
		s.ch.Close()
		return s.ch.Destroy()
	})
	s.cancel()
	s.lnk.Close()
	s.loop, s.cancel, s.lnk, s.ch = nil, nil, nil, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	sess := &session{}
	shell := ishell.New()
	shell.Println("uartchan shell (try: open /dev/ttyUSB0 115200)")
	shell.SetPrompt("[none] > ")
	shell.Set(sessionKey, sess)

	shell.AddCmd(&ishell.Cmd{
		Name: "open",
		Help: "open <device> [baud]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: open <device> [baud]"))
				return
			}
			baud := 115200
			if len(c.Args) > 1 {
				var err error
				if baud, err = strconv.Atoi(c.Args[1]); err != nil {
					c.Err(fmt.Errorf("bad baud rate %q", c.Args[1]))
					return
				}
			}
			if err := sessionFrom(c).open(shell, c.Args[0], baud); err != nil {
				c.Err(err)
				return
			}
			c.Println("waiting for handshake...")
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "send <payload...>",
		Func: func(c *ishell.Context) {
			s := sessionFrom(c)
			if s.ch == nil {
				c.Err(fmt.Errorf("not open"))
				return
			}
			payload := []byte(strings.Join(c.Args, " "))
			if err := s.post(func() error { return s.ch.Send(payload) }); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "show channel status",
		Func: func(c *ishell.Context) {
			s := sessionFrom(c)
			if s.ch == nil {
				c.Println("closed")
				return
			}
			if s.ch.Connected() {
				c.Printf("%s: connected\n", s.ch.Name())
			} else {
				c.Printf("%s: waiting for handshake\n", s.ch.Name())
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "close",
		Help: "close the channel and the port",
		Func: func(c *ishell.Context) {
			sessionFrom(c).close()
			shell.SetPrompt("[none] > ")
		},
	})

	shell.Run()
	// Run returns on exit; release the port if still held.
	sess.close()
}
