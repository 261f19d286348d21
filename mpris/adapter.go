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

// Package mpris implements the optional desktop media-control UiAdapter
// (spec.md §4.5/§6): an `org.mpris.MediaPlayer2` DBus object any standard
// desktop shell or media-key daemon can drive. Ground: jellycli's own
// `mpris/player.go` (dbus/prop property-table shape, PlaybackStatus/
// LoopStatus/TimeInUs helper types), rewired from jellycli's
// `interfaces.Player`/`AudioStatus` callback surface to this repo's
// `messages.Request`/`messages.State` channels. The teacher file referenced
// an undefined `MediaController`/`objectName`/`newProp`/`mapFromStatus` (the
// rest of its own mpris package is missing from the teacher repo); this
// package defines all of that from scratch rather than carrying the broken
// reference forward.
package mpris

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/prop"
	"github.com/sirupsen/logrus"

	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/task"
)

const objectPath = dbus.ObjectPath("/org/mpris/MediaPlayer2")

// Adapter is a UiAdapter (spec.md §4.5): it both turns DBus method calls
// into Requests and renders incoming States onto the exported DBus
// properties. Runs as a task.Task, the same embedding every other
// subsystem in this module uses (ground: task/task.go, reused verbatim).
type Adapter struct {
	task.Task

	states <-chan messages.State

	conn      *dbus.Conn
	props     *prop.Properties
	root      *rootObject
	player    *playerObject
	playlists *playlistsObject
}

// NewAdapter connects to the session bus, exports the MediaPlayer2/
// MediaPlayer2.Player/MediaPlayer2.Playlists interfaces at the standard
// MPRIS object path, and claims appName's well-known bus name. requests is
// where DBus-driven commands are published; states drives the exported
// properties.
func NewAdapter(appName string, requests bus.RequestSender, states <-chan messages.State) (*Adapter, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("mpris: connect to session bus: %w", err)
	}

	a := &Adapter{
		states:    states,
		conn:      conn,
		root:      newRootObject(appName, requests),
		player:    newPlayerObject(requests),
		playlists: newPlaylistsObject(),
	}
	a.Name = "mpris.Adapter"

	if err := conn.Export(a.root, objectPath, "org.mpris.MediaPlayer2"); err != nil {
		return nil, fmt.Errorf("mpris: export root interface: %w", err)
	}
	if err := conn.Export(a.player, objectPath, "org.mpris.MediaPlayer2.Player"); err != nil {
		return nil, fmt.Errorf("mpris: export player interface: %w", err)
	}
	if err := conn.Export(a.playlists, objectPath, "org.mpris.MediaPlayer2.Playlists"); err != nil {
		return nil, fmt.Errorf("mpris: export playlists interface: %w", err)
	}

	props := prop.New(conn, objectPath, map[string]map[string]*prop.Prop{
		"org.mpris.MediaPlayer2":          a.root.properties(),
		"org.mpris.MediaPlayer2.Player":   a.player.properties(),
		"org.mpris.MediaPlayer2.Playlists": a.playlists.properties(),
	})
	a.props = props
	a.player.props = props
	a.playlists.props = props

	busName := "org.mpris.MediaPlayer2." + sanitizeBusNameSegment(appName)
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("mpris: request bus name %s: %w", busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		logrus.Warnf("mpris: bus name %s already owned by another instance, DBus control may be limited", busName)
	}

	a.SetLoop(a.loop)
	return a, nil
}

func (a *Adapter) loop() {
	for {
		select {
		case <-a.StopChan():
			return
		case s, ok := <-a.states:
			if !ok {
				return
			}
			a.player.updateStatus(s)
			a.playlists.updateStatus(s)
			if s.Kind == messages.StQuit {
				return
			}
		}
	}
}

// sanitizeBusNameSegment keeps only the characters DBus bus names allow in
// a segment ([A-Za-z0-9_]), since appName may come from a free-form CLI
// flag.
func sanitizeBusNameSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "panharmonicon"
	}
	return b.String()
}

// sanitizeObjectPathSegment keeps only the characters a DBus object path
// segment allows, used to turn opaque track/station tokens into valid
// mpris:trackid / Playlist path values.
func sanitizeObjectPathSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}

func newProp(value interface{}, writable bool, cb func(*prop.Change) *dbus.Error) *prop.Prop {
	return &prop.Prop{
		Value:    value,
		Writable: writable,
		Emit:     prop.EmitTrue,
		Callback: cb,
	}
}
