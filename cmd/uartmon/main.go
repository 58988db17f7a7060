// uartmon runs a frame channel on a serial device and bridges it to an
// MQTT broker: payloads received on the wire are published, payloads
// published by others are sent down the wire. With console = true its
// own diagnostics share the serial line the way a device's log output
// does, pausing while a frame is in flight.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/golang/glog"

	"github.com/serialtalk/uartchan/pkg/bridge/mqtt"
	"github.com/serialtalk/uartchan/pkg/channel"
	"github.com/serialtalk/uartchan/pkg/link/serial"
	"github.com/serialtalk/uartchan/pkg/looper"
)

var (
	configPath = flag.String("config", "", "Path to TOML config file.")
	device     = flag.String("device", "", "Serial device, overrides config.")
	mqttURL    = flag.String("mqtt", "", "MQTT broker URL, overrides config.")
)

func init() {
	if val := os.Getenv("UARTCHAN_MQTT_URL"); val != "" {
		*mqttURL = val
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			glog.Exit(err)
		}
	}
	if *device != "" {
		cfg.Device = *device
	}
	if *mqttURL != "" {
		cfg.MQTTURL = *mqttURL
	}
	if cfg.Device == "" {
		glog.Exit("no serial device configured")
	}

	loop := looper.New()
	lnk, err := serial.Open(serial.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		Parity:      cfg.Parity,
		StopBits:    cfg.StopBits,
		ReadTimeout: cfg.ReadTimeout,
	}, loop)
	if err != nil {
		glog.Exit(err)
	}
	defer lnk.Close()
	if cfg.Console {
		// Device-style diagnostics on the shared wire.
		log.SetOutput(lnk.ConsoleWriter())
		log.Printf("uartmon on %s", lnk.Name())
	}

	queue, err := mqtt.NewQueueFromURL(cfg.MQTTURL)
	if err != nil {
		glog.Exit(err)
	}
	defer queue.Close()

	bridge := mqtt.NewBridge(queue, loop)
	ch := channel.New(lnk, bridge, channel.Config{
		RequireHandshake: cfg.RequireHandshake,
		MaxFrameSize:     cfg.MaxFrameSize,
	})
	bridge.Bind(ch)

	if err := queue.Connect(); err != nil {
		glog.Exit(err)
	}
	if err := bridge.Start(); err != nil {
		glog.Exit(err)
	}

	loop.Post(ch.Connect)
	glog.Infof("%s <-> %s", lnk.Name(), cfg.MQTTURL)

	runner := looper.NewRunner().HandleSignals()
	runner.Go(looper.NamedRun("loop", loop))
	if err := runner.Wait(); err != nil {
		glog.Error(err)
	}
	// The loop is stopped; nothing else touches channel state now.
	ch.Close()
	if err := ch.Destroy(); err != nil {
		glog.Error(err)
	}
}
