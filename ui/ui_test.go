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

package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
)

type fakeSender struct {
	sent []messages.Request
}

func (f *fakeSender) TrySend(r messages.Request) error {
	f.sent = append(f.sent, r)
	return nil
}

func (f *fakeSender) last(t *testing.T) messages.Request {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeLoginStore struct {
	cred models.Credentials
}

func (f *fakeLoginStore) Credentials() models.Credentials { return f.cred }
func (f *fakeLoginStore) SetCredentials(cred models.Credentials) {
	f.cred = cred
}

func newTestAdapter() (*Adapter, *fakeSender, *bytes.Buffer) {
	sender := &fakeSender{}
	out := &bytes.Buffer{}
	store := &fakeLoginStore{cred: models.NewInvalidCredentials("")}
	a := NewAdapter(sender, make(chan messages.State), store, strings.NewReader(""), out)
	return a, sender, out
}

func TestAdapter_HandleCommandTune(t *testing.T) {
	a, sender, _ := newTestAdapter()
	a.handleCommand("tune s1")
	req := sender.last(t)
	assert.Equal(t, messages.ReqTune, req.Kind)
	assert.Equal(t, "s1", req.StationID)
}

func TestAdapter_HandleCommandTuneRequiresArgument(t *testing.T) {
	a, sender, out := newTestAdapter()
	a.handleCommand("tune")
	assert.Empty(t, sender.sent)
	assert.Contains(t, out.String(), "usage")
}

func TestAdapter_HandleCommandVolumeParsesFloat(t *testing.T) {
	a, sender, _ := newTestAdapter()
	a.handleCommand("volume 0.5")
	req := sender.last(t)
	assert.Equal(t, messages.ReqVolume, req.Kind)
	assert.Equal(t, 0.5, req.Volume)
}

func TestAdapter_HandleCommandVolumeRejectsGarbage(t *testing.T) {
	a, sender, out := newTestAdapter()
	a.handleCommand("volume abc")
	assert.Empty(t, sender.sent)
	assert.Contains(t, out.String(), "bad volume")
}

func TestAdapter_HandleCommandAliasesMapToSameRequest(t *testing.T) {
	a, sender, _ := newTestAdapter()
	a.handleCommand("p")
	assert.Equal(t, messages.ReqTogglePause, sender.last(t).Kind)
	a.handleCommand("skip")
	assert.Equal(t, messages.ReqStop, sender.last(t).Kind)
	a.handleCommand("q")
	assert.Equal(t, messages.ReqQuit, sender.last(t).Kind)
}

func TestAdapter_HandleCommandUnknownIsReported(t *testing.T) {
	a, sender, out := newTestAdapter()
	a.handleCommand("frobnicate")
	assert.Empty(t, sender.sent)
	assert.Contains(t, out.String(), "unknown command")
}

func TestAdapter_HandleCommandBlankLineIsIgnored(t *testing.T) {
	a, sender, out := newTestAdapter()
	a.handleCommand("   ")
	assert.Empty(t, sender.sent)
	assert.Empty(t, out.String())
}

func TestAdapter_RenderPrintsTrackAndStationInfo(t *testing.T) {
	a, _, out := newTestAdapter()
	a.render(messages.StateAddStation("Classical", "s1"))
	assert.Contains(t, out.String(), "Classical")
	assert.Contains(t, out.String(), "s1")

	out.Reset()
	track := models.Track{Title: "Song", Artist: "Band", Duration: 2 * time.Minute}
	a.render(messages.StateTrackStarting(track))
	assert.Contains(t, out.String(), "Song")
	assert.Contains(t, out.String(), "Band")
	assert.True(t, a.hasTrack)
}

func TestAdapter_RenderStoppedClearsHasTrack(t *testing.T) {
	a, _, out := newTestAdapter()
	a.render(messages.StateTrackStarting(models.Track{Title: "Song"}))
	require.True(t, a.hasTrack)

	a.render(messages.StateStopped(models.StopReasonCompleted))
	assert.False(t, a.hasTrack)
	assert.Contains(t, out.String(), "stopped")
}

func TestAdapter_LoginPromptsOnlyForMissingFields(t *testing.T) {
	a, _, _ := newTestAdapter()
	calls := map[string]int{}
	prompt := func(name string, mask bool) (string, error) {
		calls[name]++
		if name == "Pandora user" {
			return "alice", nil
		}
		return "hunter2", nil
	}

	err := a.Login(false, prompt)
	require.NoError(t, err)
	assert.Equal(t, 1, calls["Pandora user"])
	assert.Equal(t, 1, calls["Pandora password"])

	user, pass, ok := a.config.Credentials().Get()
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "hunter2", pass)
}

func TestAdapter_LoginSkipsPromptWhenCredentialsAlreadyKnown(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeLoginStore{cred: models.NewConfigFileCredentials("bob", "pw")}
	a := NewAdapter(sender, make(chan messages.State), store, strings.NewReader(""), &bytes.Buffer{})

	called := false
	prompt := func(name string, mask bool) (string, error) {
		called = true
		return "", nil
	}

	err := a.Login(false, prompt)
	require.NoError(t, err)
	assert.False(t, called, "Login must not prompt when credentials are already complete")
}

func TestAdapter_LoginForceReauthAlwaysPrompts(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeLoginStore{cred: models.NewConfigFileCredentials("bob", "pw")}
	a := NewAdapter(sender, make(chan messages.State), store, strings.NewReader(""), &bytes.Buffer{})

	calls := 0
	prompt := func(name string, mask bool) (string, error) {
		calls++
		if name == "Pandora user" {
			return "carol", nil
		}
		return "newpass", nil
	}

	err := a.Login(true, prompt)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	user, pass, _ := a.config.Credentials().Get()
	assert.Equal(t, "carol", user)
	assert.Equal(t, "newpass", pass)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:09", formatDuration(9*time.Second))
	assert.Equal(t, "1:05", formatDuration(65*time.Second))
}
