/*
 * Jellycli is a terminal music player for Jellyfin.
 * Copyright (C) 2020 Tero Vierimaa
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package ui implements the minimal interactive UiAdapter (spec.md §4.5):
// a line-oriented stdin/stdout terminal, not a widget tree. Spec.md §1
// scopes "the terminal rendering widgets" out as an external collaborator,
// but §4.5 still names UiAdapter itself as in-scope — translate input to
// Requests, render State events. Ground: original_source/src/simpleterm.rs
// and src/ui/dumbterm.rs, the distillation's non-cursive fallback UI
// (dropped by spec.md, not excluded by any Non-goal), generalized from
// jellycli's own TUI-only ui package since jellycli never shipped a
// line-mode terminal of its own.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
	"github.com/tvierimaa/panharmonicon/task"
)

// LoginStore is the narrow slice of configuration the login flow needs.
// Ground: model.ConfigStore's own narrow-interface idiom, applied here so
// ui stays independently testable and doesn't need to import viper or the
// concrete config.Config type.
type LoginStore interface {
	Credentials() models.Credentials
	SetCredentials(cred models.Credentials)
}

// Adapter is a UiAdapter (spec.md §4.5): a line-based terminal that prints
// State transitions to out and turns single-letter stdin commands into
// Requests. Runs as a task.Task alongside every other subsystem (ground:
// task/task.go, reused verbatim).
type Adapter struct {
	task.Task

	requests bus.RequestSender
	states   <-chan messages.State
	config   LoginStore

	in  *bufio.Reader
	out io.Writer

	nowPlaying   models.Track
	hasTrack     bool
	lastDuration time.Duration
}

// NewAdapter constructs a terminal UiAdapter. requests is where typed
// commands are published; states drives what gets printed; config backs
// the interactive login prompt (Login).
func NewAdapter(requests bus.RequestSender, states <-chan messages.State, config LoginStore, in io.Reader, out io.Writer) *Adapter {
	a := &Adapter{
		requests: requests,
		states:   states,
		config:   config,
		in:       bufio.NewReader(in),
		out:      out,
	}
	a.Name = "ui.Adapter"
	a.SetLoop(a.loop)
	return a
}

// promptFunc reads one line of (optionally masked) user input. The cmd
// package wires this to config.ReadUserInput; tests supply a stub so Login
// can run against an in-memory config without a real terminal.
type promptFunc func(name string, mask bool) (string, error)

// Login prompts for a username/password until both are non-empty, mirroring
// simpleterm.rs's Terminal::login retry loop: a blank answer (including one
// typed by mistake) simply re-prompts rather than proceeding with an
// incomplete credential. forceReauth, when true, re-prompts even if
// credentials are already configured (the ApiWorker's AuthFailed path).
func (a *Adapter) Login(forceReauth bool, prompt promptFunc) error {
	username, password, ok := a.config.Credentials().Get()

	if forceReauth || !ok || username == "" {
		for username == "" {
			u, err := prompt("Pandora user", false)
			if err != nil {
				return fmt.Errorf("ui: read username: %w", err)
			}
			username = u
		}
	}
	if forceReauth || !ok || password == "" {
		for password == "" {
			p, err := prompt("Pandora password", true)
			if err != nil {
				return fmt.Errorf("ui: read password: %w", err)
			}
			password = p
		}
	}

	a.config.SetCredentials(models.NewConfigFileCredentials(username, password))
	return nil
}

func (a *Adapter) loop() {
	lines := make(chan string)
	go a.readLines(lines)

	for {
		select {
		case <-a.StopChan():
			return
		case s, ok := <-a.states:
			if !ok {
				return
			}
			a.render(s)
			if s.Kind == messages.StQuit {
				return
			}
		case line, ok := <-lines:
			if !ok {
				return
			}
			a.handleCommand(line)
		}
	}
}

// readLines feeds stdin lines to the select loop in loop() so a blocking
// read never stalls rendering of incoming State events. It exits once the
// reader returns an error (EOF on stdin, or the process closing it on
// shutdown).
func (a *Adapter) readLines(out chan<- string) {
	defer close(out)
	for {
		line, err := a.in.ReadString('\n')
		if line != "" {
			out <- strings.TrimSpace(line)
		}
		if err != nil {
			return
		}
	}
}

// handleCommand maps one typed line to a Request. Unrecognized input is
// reported and otherwise ignored, same as simpleterm.rs's display_error
// path for bad input.
func (a *Adapter) handleCommand(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	switch strings.ToLower(cmd) {
	case "tune", "t":
		if len(args) != 1 {
			a.printf("usage: tune <station-id>\n")
			return
		}
		a.send(messages.Tune(args[0]))
	case "untune", "u":
		a.send(messages.Untune())
	case "pause":
		a.send(messages.Pause())
	case "unpause", "play":
		a.send(messages.Unpause())
	case "p", "playpause":
		a.send(messages.TogglePause())
	case "mute":
		a.send(messages.Mute())
	case "unmute":
		a.send(messages.Unmute())
	case "vol", "volume":
		if len(args) != 1 {
			a.printf("usage: volume <0.0-1.0>\n")
			return
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			a.printf("bad volume %q: %v\n", args[0], err)
			return
		}
		a.send(messages.Volume(v))
	case "v+":
		a.send(messages.VolumeUp())
	case "v-":
		a.send(messages.VolumeDown())
	case "rate+", "like":
		a.send(messages.RateUp())
	case "rate-", "dislike":
		a.send(messages.RateDown())
	case "unrate":
		a.send(messages.UnRate())
	case "skip", "n", "next":
		a.send(messages.Stop(models.StopReasonUserRequest))
	case "connect", "c":
		a.send(messages.Connect())
	case "quit", "q":
		a.send(messages.Quit())
	default:
		a.printf("unknown command %q\n", cmd)
	}
}

func (a *Adapter) send(r messages.Request) {
	if err := a.requests.TrySend(r); err != nil {
		logrus.Warnf("ui: %v", err)
	}
}

// render prints one State transition. Ground: simpleterm.rs's
// display_station_info/display_playing/update_playing_progress family,
// collapsed onto a single writer instead of a cursor-addressed progress
// bar since this UI has no terminal-control dependency to draw one.
func (a *Adapter) render(s messages.State) {
	switch s.Kind {
	case messages.StConnected:
		a.printf("connected\n")
	case messages.StDisconnected:
		a.printf("disconnected\n")
		a.hasTrack = false
	case messages.StAuthFailed:
		a.printf("authentication failed: %s\n", s.Message)
	case messages.StAddStation:
		a.printf("station %s (%s)\n", s.StationName, s.StationID)
	case messages.StTuned:
		a.printf("tuned to %s\n", s.StationID)
	case messages.StTrackStarting:
		a.nowPlaying, a.hasTrack = s.Track, true
		a.lastDuration = s.Track.Duration
		a.printf("now playing: %s - %s\n", s.Track.Title, s.Track.Artist)
	case messages.StPlaying:
		a.printProgress(s.Elapsed)
	case messages.StPaused:
		a.printf("paused at %s\n", formatDuration(s.Elapsed))
	case messages.StStopped:
		a.hasTrack = false
		a.printf("stopped (%s)\n", s.StopReason)
	case messages.StVolume:
		a.printf("volume %.0f%%\n", s.Volume*100)
	case messages.StMuted:
		a.printf("muted\n")
	case messages.StUnmuted:
		a.printf("unmuted\n")
	case messages.StBuffering:
		a.printf("buffering...\n")
	case messages.StQuit:
		a.printf("goodbye\n")
	}
}

func (a *Adapter) printProgress(elapsed time.Duration) {
	if !a.hasTrack {
		return
	}
	if a.lastDuration > 0 {
		a.printf("%s / %s\r", formatDuration(elapsed), formatDuration(a.lastDuration))
	} else {
		a.printf("%s\r", formatDuration(elapsed))
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

func (a *Adapter) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(a.out, format, args...); err != nil {
		logrus.Warnf("ui: write to output failed: %v", err)
	}
}
