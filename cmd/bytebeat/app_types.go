package main

import (
	"github.com/gosuda/bytebeat/audio"
	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

type appConfig struct {
	ui            string
	engine        rpn.Mode
	rate          int
	volume        float64
	backend       string
	frames        int
	exportSeconds int
	source        string
	file          string
	presets       []bbruntime.Preset
	presetFile    string
	seconds       int
	verbose       bool
}

// session is the engine shared by every front end.
type session struct {
	cfg    appConfig
	vm     *bbruntime.VM
	player *audio.Player
}

type tickMsg struct{}

type exportDoneMsg struct {
	path  string
	bytes int64
	err   error
}
