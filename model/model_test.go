/*
 * Copyright 2020 Tero Vierimaa
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
)

// fakeConfig is an in-memory ConfigStore for tests.
type fakeConfig struct {
	creds      models.Credentials
	policy     models.CachePolicy
	stationID  string
	hasStation bool
	volume     float64
	flushCalls int
}

func (f *fakeConfig) Credentials() models.Credentials { return f.creds }
func (f *fakeConfig) CachePolicy() models.CachePolicy  { return f.policy }
func (f *fakeConfig) StationID() (string, bool)        { return f.stationID, f.hasStation }
func (f *fakeConfig) SetStationID(id string, ok bool) {
	f.stationID, f.hasStation = id, ok
}
func (f *fakeConfig) Volume() float64     { return f.volume }
func (f *fakeConfig) SetVolume(v float64) { f.volume = v }
func (f *fakeConfig) Flush() error        { f.flushCalls++; return nil }

func newTestModel(t *testing.T, cfg *fakeConfig) (*Model, chan messages.ApiCommand, chan messages.ApiResult) {
	t.Helper()
	requests := bus.NewRequestQueue()
	states := bus.NewStateBus()
	cmds := make(chan messages.ApiCommand, 16)
	results := make(chan messages.ApiResult, 16)
	m := New(requests, states, cmds, results, cfg)
	return m, cmds, results
}

func cachedTrack(t *testing.T, token string) models.Track {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, token+".mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake-audio-bytes"), 0o644))
	return models.Track{TrackToken: token, MusicID: "m-" + token, StationID: "s1", Title: "Track " + token, CachedPath: path}
}

func TestModel_ConnectSendsCommandOnce(t *testing.T) {
	cfg := &fakeConfig{creds: models.NewConfigFileCredentials("u", "p")}
	m, cmds, _ := newTestModel(t, cfg)

	m.connect()
	require.Len(t, cmds, 1)
	assert.Equal(t, messages.ApiCmdConnect, (<-cmds).Kind)
	assert.True(t, m.pendingConnect)

	m.connect() // already pending, must not send again
	assert.Len(t, cmds, 0)
}

func TestModel_TuneRequiresConnectionAndKnownStation(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)

	err := m.tune("s1")
	assert.Error(t, err)

	m.sessionConnected = true
	err = m.tune("s1")
	assert.Error(t, err, "unknown station should fail even when connected")

	m.stations["s1"] = "Jazz"
	require.NoError(t, m.tune("s1"))
	assert.Equal(t, "s1", m.tuned())
	assert.Equal(t, "s1", cfg.stationID)
	assert.True(t, cfg.hasStation)
}

func TestModel_TuneSameStationIsNoop(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	m.sessionConnected = true
	m.stations["s1"] = "Jazz"
	require.NoError(t, m.tune("s1"))

	require.NoError(t, m.tune("s1"))
	assert.Equal(t, "s1", m.tuned())
}

func TestModel_HandlePandoraResultConnected(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	sub, unsub := m.Subscribe()
	defer unsub()

	m.handlePandoraResult(messages.ApiConnected())
	assert.True(t, m.connected())
	assert.False(t, m.pendingConnect)

	st := <-sub
	assert.Equal(t, messages.StConnected, st.Kind)
	st = <-sub
	assert.Equal(t, messages.StVolume, st.Kind)
}

func TestModel_HandlePandoraResultAuthFailedClearsStations(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	m.stations["s1"] = "Jazz"

	m.handlePandoraResult(messages.ApiAuthFailed("bad creds"))
	assert.False(t, m.connected())
	assert.Empty(t, m.stations)
}

func TestModel_StationListAddsUnknownStationsAndUntunesMissing(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	m.sessionConnected = true
	m.stations["stale"] = "Old"
	m.tunedStation = &station{id: "stale", name: "Old"}

	m.handlePandoraResult(messages.ApiStationList(map[string]string{"s1": "Jazz"}))
	assert.Equal(t, "Jazz", m.stations["s1"])
	assert.False(t, m.tunedOK(), "tuned station absent from fresh list must be untuned")
}

func TestModel_AddTrackRequiresCachedFile(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	m.sessionConnected = true
	m.stations["s1"] = "Jazz"
	require.NoError(t, m.tune("s1"))

	uncached := models.Track{TrackToken: "t1", StationID: "s1", Title: "x"}
	err := m.addTrack(uncached)
	assert.Error(t, err)

	track := cachedTrack(t, "t1")
	require.NoError(t, m.addTrack(track))
	assert.Equal(t, 1, m.playlistLen())
}

func TestModel_StartPlaysReadyTrackAndNotifiesNext(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	m.sessionConnected = true
	m.stations["s1"] = "Jazz"
	require.NoError(t, m.tune("s1"))

	sub, unsub := m.Subscribe()
	defer unsub()

	track := cachedTrack(t, "t1")
	require.NoError(t, m.addTrack(track))

	m.start()
	require.NotNil(t, m.getPlaying())
	assert.Equal(t, "t1", m.getPlaying().TrackToken)

	st := <-sub // Next (addTrack fired it since list was empty)
	assert.Equal(t, messages.StNext, st.Kind)
	st = <-sub // TrackStarting
	assert.Equal(t, messages.StTrackStarting, st.Kind)
	st = <-sub // Next again (now empty)
	assert.Equal(t, messages.StNext, st.Kind)
}

func TestModel_StopEvictsTrackWhenPolicyRequires(t *testing.T) {
	cfg := &fakeConfig{policy: models.CachePlayingEvictCompleted}
	m, _, _ := newTestModel(t, cfg)
	m.sessionConnected = true
	m.stations["s1"] = "Jazz"
	require.NoError(t, m.tune("s1"))

	track := cachedTrack(t, "t1")
	path := track.CachedPath
	require.NoError(t, m.addTrack(track))
	m.start()
	require.FileExists(t, path)

	m.stop(models.StopReasonCompleted)
	assert.Nil(t, m.getPlaying())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "evict_completed policy must remove the cache file")
}

func TestModel_StopKeepsFileWhenPolicyDoesNotEvict(t *testing.T) {
	cfg := &fakeConfig{policy: models.CacheAllNoEviction}
	m, _, _ := newTestModel(t, cfg)
	m.sessionConnected = true
	m.stations["s1"] = "Jazz"
	require.NoError(t, m.tune("s1"))

	track := cachedTrack(t, "t1")
	path := track.CachedPath
	require.NoError(t, m.addTrack(track))
	m.start()

	m.stop(models.StopReasonCompleted)
	assert.FileExists(t, path)
}

func TestModel_RateTrackRequiresPlayingAndConnected(t *testing.T) {
	cfg := &fakeConfig{}
	m, cmds, _ := newTestModel(t, cfg)

	assert.Error(t, m.rateTrack(messages.RatingUp), "nothing playing")

	m.sessionConnected = true
	m.stations["s1"] = "Jazz"
	require.NoError(t, m.tune("s1"))
	track := cachedTrack(t, "t1")
	require.NoError(t, m.addTrack(track))
	m.start()

	m.sessionConnected = false
	assert.Error(t, m.rateTrack(messages.RatingUp), "disconnected")

	m.sessionConnected = true
	require.NoError(t, m.rateTrack(messages.RatingUp))
	require.Len(t, cmds, 1)
	assert.Equal(t, messages.ApiCmdRateTrack, (<-cmds).Kind)
}

func TestModel_VolumeChangeClampsAndPersists(t *testing.T) {
	cfg := &fakeConfig{volume: 0.5}
	m, _, _ := newTestModel(t, cfg)

	m.changeVolume(10)
	assert.Equal(t, 1.0, m.volume())
	assert.Equal(t, 1.0, cfg.volume)

	m.changeVolume(-10)
	assert.Equal(t, 0.0, m.volume())
}

func TestModel_SetVolumeClampsOutOfRangeValues(t *testing.T) {
	cfg := &fakeConfig{volume: 0.5}
	m, _, _ := newTestModel(t, cfg)

	m.setVolume(1.5)
	assert.Equal(t, 1.0, m.volume())
	assert.Equal(t, 1.0, cfg.volume)

	m.setVolume(-0.3)
	assert.Equal(t, 0.0, m.volume())
	assert.Equal(t, 0.0, cfg.volume)
}

func TestModel_HandleRequestVolumeClampsBeforeStoring(t *testing.T) {
	cfg := &fakeConfig{volume: 0.5}
	m, _, _ := newTestModel(t, cfg)
	sub, unsub := m.Subscribe()
	defer unsub()

	m.handleRequest(messages.Volume(1.5))
	assert.Equal(t, 1.0, m.volume())
	st := <-sub
	assert.Equal(t, messages.StVolume, st.Kind)
	assert.Equal(t, 1.0, st.Volume)
}

func TestModel_AddTrackDropsTrackFromStaleStation(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	m.sessionConnected = true
	m.stations["s1"] = "Jazz"
	m.stations["s2"] = "Rock"
	require.NoError(t, m.tune("s2"))

	stale := cachedTrack(t, "t1") // StationID "s1", but Model is tuned to "s2"
	require.NoError(t, m.addTrack(stale), "stale-station tracks are silently dropped, not errors")
	assert.Equal(t, 0, m.playlistLen())
}

func TestModel_MuteUnmuteIdempotent(t *testing.T) {
	cfg := &fakeConfig{}
	m, _, _ := newTestModel(t, cfg)
	sub, unsub := m.Subscribe()
	defer unsub()

	m.mute()
	m.mute() // no-op, no duplicate event
	assert.True(t, m.muted())

	m.unmute()
	assert.False(t, m.muted())

	st := <-sub
	assert.Equal(t, messages.StMuted, st.Kind)
	st = <-sub
	assert.Equal(t, messages.StUnmuted, st.Kind)
}

func TestModel_RunUntilQuitStopsOnQuitRequest(t *testing.T) {
	cfg := &fakeConfig{creds: models.NewConfigFileCredentials("u", "p")}
	m, _, _ := newTestModel(t, cfg)

	done := make(chan struct{})
	go func() {
		m.RunUntilQuit(context.Background(), 50*time.Millisecond)
		close(done)
	}()

	require.NoError(t, m.Requests().TrySend(messages.Quit()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunUntilQuit did not return after Quit request")
	}
	assert.Equal(t, 1, cfg.flushCalls)
}

func TestModel_RunUntilQuitStopsOnContextCancel(t *testing.T) {
	cfg := &fakeConfig{creds: models.NewConfigFileCredentials("u", "p")}
	m, _, _ := newTestModel(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.RunUntilQuit(ctx, 50*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunUntilQuit did not return after context cancel")
	}
}
