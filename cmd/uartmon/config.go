package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type monConfig struct {
	Device           string
	Baud             int
	Parity           string
	StopBits         int
	ReadTimeout      time.Duration
	RequireHandshake bool
	MaxFrameSize     int
	MQTTURL          string
	Console          bool
}

func defaultConfig() monConfig {
	return monConfig{
		Baud:             115200,
		Parity:           "none",
		StopBits:         1,
		RequireHandshake: true,
		MaxFrameSize:     4096,
		MQTTURL:          "mqtt://localhost:1883/uartchan/",
	}
}

type fileConfig struct {
	Device           string `toml:"device"`
	Baud             int    `toml:"baud"`
	Parity           string `toml:"parity"`
	StopBits         int    `toml:"stop_bits"`
	ReadTimeout      string `toml:"read_timeout"`
	RequireHandshake bool   `toml:"require_handshake"`
	MaxFrameSize     int    `toml:"max_frame_size"`
	MQTTURL          string `toml:"mqtt_url"`
	Console          bool   `toml:"console"`
}

func loadConfig(path string) (monConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return monConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("device") {
		cfg.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("parity") {
		cfg.Parity = strings.TrimSpace(raw.Parity)
	}
	if meta.IsDefined("stop_bits") {
		cfg.StopBits = raw.StopBits
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return monConfig{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if meta.IsDefined("require_handshake") {
		cfg.RequireHandshake = raw.RequireHandshake
	}
	if meta.IsDefined("max_frame_size") {
		cfg.MaxFrameSize = raw.MaxFrameSize
	}
	if meta.IsDefined("mqtt_url") {
		cfg.MQTTURL = strings.TrimSpace(raw.MQTTURL)
	}
	if meta.IsDefined("console") {
		cfg.Console = raw.Console
	}

	return cfg, nil
}
