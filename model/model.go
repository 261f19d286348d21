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

// Package model implements the Model: the single task that owns all
// session/playback state and mediates between the ApiWorker, the
// PrefetchCache, the Player and every UiAdapter, communicating with each
// exclusively through the Request/State channels in package bus.
//
// Ground: original_source/src/model.rs, translated field-for-field and
// method-for-method. Concurrency shape (task.Task-free, single hand-rolled
// event loop) follows the spec's own description (spec.md §5) rather than
// any one teacher file, since jellycli has no single component with this
// responsibility; channel plumbing itself is bus, already grounded there.
package model

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
)

// Bounds on the playlist/fetchlist, ground: model.rs FETCHLIST_MAX_LEN /
// PLAYLIST_MAX_LEN.
const (
	fetchlistMaxLen = 8
	playlistMaxLen  = 12
)

// ConfigStore is the narrow slice of configuration the Model reads and
// writes. A concrete implementation lives in package config; this interface
// keeps model independently testable and avoids model depending on viper at
// all. Ground: original_source/src/config.rs's SharedConfig (a
// read/write-locked handle the Model calls .read()/.write() on).
type ConfigStore interface {
	Credentials() models.Credentials
	CachePolicy() models.CachePolicy
	// StationID returns the configured auto-tune station, if any.
	StationID() (string, bool)
	// SetStationID persists the tuned station, or clears it when ok is false.
	SetStationID(id string, ok bool)
	Volume() float64
	SetVolume(v float64)
	// Flush commits any pending writes to durable storage.
	Flush() error
}

// station is the Go translation of Rust's Option<(String, String)> —
// (station_id, station_name).
type station struct {
	id   string
	name string
}

// Model is the spec's Model (spec.md §4.1/§4.2). It owns no lock: all of
// its state is only ever touched from the goroutine running RunUntilQuit.
type Model struct {
	playerVolume  float64
	playerMuted   bool
	playerPaused  bool
	currentTrack  *models.Track // nil iff nothing is playing
	stopReason    models.StopReason // meaningful only while currentTrack == nil
	playerProgress *time.Duration
	playerLength   *time.Duration

	sessionConnected   bool
	pendingConnect      bool
	pendingStationList bool
	pendingPlaylist    bool

	tunedStation    *station
	stations        map[string]string
	readylist       []models.Track
	fetchlist       []models.Track

	quittingFlag bool

	requests *bus.RequestQueue
	states   *bus.StateBus

	apiCommands chan<- messages.ApiCommand
	apiResults  <-chan messages.ApiResult

	config ConfigStore

	dirty bool
}

// New builds a Model. requests/states are the bounded queue and broadcast
// bus it owns and hands subscriptions/senders out from; apiCommands/
// apiResults are the ApiWorker's command/result channels.
func New(requests *bus.RequestQueue, states *bus.StateBus, apiCommands chan<- messages.ApiCommand, apiResults <-chan messages.ApiResult, config ConfigStore) *Model {
	return &Model{
		playerVolume: config.Volume(),
		stopReason:   models.StopReasonInitializing,
		stations:     make(map[string]string, 16),
		readylist:    make([]models.Track, 0, playlistMaxLen),
		fetchlist:    make([]models.Track, 0, fetchlistMaxLen),
		requests:     requests,
		states:       states,
		apiCommands:  apiCommands,
		apiResults:   apiResults,
		config:       config,
		dirty:        true,
	}
}

// Requests returns the sender side of the Model's inbound Request queue,
// handed out to subsystems that only ever need to publish.
func (m *Model) Requests() bus.RequestSender { return m.requests }

// Subscribe registers a new State subscriber (Player, UiAdapter, MPRIS).
func (m *Model) Subscribe() (<-chan messages.State, func()) { return m.states.Subscribe() }

func (m *Model) publish(s messages.State) {
	logrus.Debugf("model: state update: %s", s.Kind)
	m.states.Publish(s)
}

func (m *Model) sendApiCommand(c messages.ApiCommand) {
	select {
	case m.apiCommands <- c:
	default:
		logrus.Warnf("model: ApiWorker command channel full, dropping %s", c.Kind)
	}
}

// Connect requests a Pandora session, idempotent while already connected or
// already connecting.
func (m *Model) connect() {
	if m.connected() {
		logrus.Info("model: connect request ignored, already connected")
		return
	}
	if m.pendingConnect {
		logrus.Trace("model: connect already in progress")
		return
	}
	logrus.Trace("model: attempting pandora login")
	m.dirty = true
	m.pendingConnect = true
	m.sendApiCommand(messages.ApiConnect())
}

func (m *Model) connected() bool { return m.sessionConnected }

func (m *Model) disconnect() {
	m.sessionConnected = false
	m.pendingConnect = false
	m.sendApiCommand(messages.ApiDisconnect())
	m.clearStations()
	m.dirty = true
	m.publish(messages.StateDisconnected())
}

func (m *Model) clearStations() {
	m.stations = make(map[string]string, 16)
	m.untune()
}

func (m *Model) tune(stationID string) error {
	if !m.connected() {
		return errInvalidState("tune", "Disconnected")
	}
	if m.tuned() == stationID && m.tunedOK() {
		logrus.Debug("model: request to tune station that is already tuned")
		return nil
	}
	name, ok := m.stations[stationID]
	if !ok {
		return errInvalidStation(stationID)
	}
	logrus.Infof("model: switched station to %s (%s)", name, stationID)
	m.untune()
	m.tunedStation = &station{id: stationID, name: name}
	m.dirty = true
	m.publish(messages.StateTuned(stationID))
	m.config.SetStationID(stationID, true)
	m.stop(models.StopReasonUntuning)
	return nil
}

func (m *Model) untune() {
	m.tunedStation = nil
	m.dirty = true
	m.config.SetStationID("", false)
	m.clearPlaylist()
	if m.getPlaying() != nil {
		m.stop(models.StopReasonUntuning)
	}
	m.publish(messages.StateConnected())
}

func (m *Model) clearPlaylist() {
	m.readylist = m.readylist[:0]
	m.fetchlist = m.fetchlist[:0]
}

// tuned returns the currently-tuned station id, or "" if untuned.
func (m *Model) tuned() string {
	if m.tunedStation == nil {
		return ""
	}
	return m.tunedStation.id
}

func (m *Model) tunedOK() bool { return m.tunedStation != nil }

func (m *Model) readyNextTrack() (*models.Track, error) {
	if !m.tunedOK() {
		return nil, errInvalidState("ready_next_track", "Untuned")
	}
	if len(m.readylist) == 0 {
		return nil, nil
	}
	track := m.readylist[0]
	m.readylist = m.readylist[1:]
	return &track, nil
}

func (m *Model) enqueueTrack(track models.Track) error {
	if !m.tunedOK() {
		return errInvalidState("enqueue_track", "Untuned")
	}
	if track.StationID != m.tuned() {
		logrus.Tracef("model: dropping track %s for stale station %s, tuned to %s",
			track.TrackToken, track.StationID, m.tuned())
		m.unfetchTrack(track)
		return nil
	}
	if !track.Cached() {
		return errTrackNotCached(track.Title)
	}
	m.readylist = append(m.readylist, track)
	m.unfetchTrack(track)
	return nil
}

func (m *Model) playlistLen() int { return len(m.readylist) }
func (m *Model) pendingLen() int  { return len(m.fetchlist) }

func (m *Model) quit() {
	logrus.Info("model: application request to quit")
	m.quittingFlag = true
	m.dirty = true
	m.sendApiCommand(messages.ApiQuit())
	m.publish(messages.StateQuit())
}

func (m *Model) quitting() bool { return m.quittingFlag }

func (m *Model) getNext() *models.Track {
	if len(m.readylist) == 0 {
		return nil
	}
	return &m.readylist[0]
}

func (m *Model) getPlaying() *models.Track { return m.currentTrack }

func (m *Model) notifyPlaying() {
	if t := m.getPlaying(); t != nil {
		m.publish(messages.StateTrackStarting(*t))
	}
}

func (m *Model) notifyNext() {
	m.publish(messages.StateNext(m.getNext()))
}

// RateTrack requests a rating change for the currently-playing track.
func (m *Model) rateTrack(dir messages.RatingDirection) error {
	track := m.getPlaying()
	if track == nil {
		return errInvalidState("rate_track", "Stopped")
	}
	if !m.connected() {
		return errInvalidState("rate_track", "Disconnected")
	}
	m.sendApiCommand(messages.ApiRateTrack(*track, dir))
	m.dirty = true
	return nil
}

func (m *Model) addStation(id, name string) {
	if _, ok := m.stations[id]; ok {
		logrus.Trace("model: not adding station, already exists")
		return
	}
	m.stations[id] = name
	m.dirty = true
	m.publish(messages.StateAddStation(name, id))
}

func (m *Model) fillStationList() error {
	if !m.connected() {
		return errInvalidState("fetch_station_list", "Disconnected")
	}
	if m.pendingStationList {
		return nil
	}
	m.pendingStationList = true
	m.sendApiCommand(messages.ApiGetStationList())
	return nil
}

func (m *Model) refillPlaylist() error {
	if m.pendingLen() > fetchlistMaxLen {
		logrus.Debug("model: enough tracks in-flight already, not requesting more")
		return nil
	}
	if m.playlistLen() > playlistMaxLen {
		logrus.Debug("model: enough tracks in playlist already, not requesting more")
		return nil
	}
	if !m.tunedOK() {
		return errInvalidState("fetch_playlist", "Untuned")
	}
	if !m.connected() {
		return errInvalidState("fetch_playlist", "Disconnected")
	}
	if m.pendingPlaylist {
		return nil
	}
	m.pendingPlaylist = true
	logrus.Debug("model: getting new tracks to refill playlist")
	m.sendApiCommand(messages.ApiGetPlaylist(m.tuned()))
	return nil
}

func (m *Model) updateTrackProgress(elapsed time.Duration) {
	var prevSecs int64 = -1
	if m.playerProgress != nil {
		prevSecs = int64(m.playerProgress.Seconds())
	}
	if prevSecs == int64(elapsed.Seconds()) {
		return
	}
	e := elapsed
	m.playerProgress = &e
	m.dirty = true
	if m.playerPaused {
		logrus.Warn("model: unexpected track progress request while track paused")
		m.publish(messages.StatePaused(elapsed))
	} else {
		m.publish(messages.StatePlaying(elapsed))
	}
}

// handleRequest dispatches one Request (ground: model.rs handle_request's
// match arm per Request variant).
func (m *Model) handleRequest(req messages.Request) {
	logrus.Debugf("model: request: %s", req.Kind)
	var err error
	switch req.Kind {
	case messages.ReqConnect:
		m.connect()
	case messages.ReqTune:
		err = m.tune(req.StationID)
	case messages.ReqUntune:
		m.untune()
	case messages.ReqFetchFailed:
		m.unfetchTrack(req.Track)
	case messages.ReqAddTrack:
		err = m.addTrack(req.Track)
	case messages.ReqStop:
		m.stop(req.StopReason)
	case messages.ReqUpdateTrackProgress:
		m.updateTrackProgress(req.Elapsed)
	case messages.ReqPause:
		m.pause()
	case messages.ReqUnpause:
		m.unpause()
	case messages.ReqTogglePause:
		m.togglePause()
	case messages.ReqMute:
		m.mute()
	case messages.ReqUnmute:
		m.unmute()
	case messages.ReqVolume:
		m.setVolume(req.Volume)
	case messages.ReqVolumeDown:
		m.changeVolume(-0.1)
	case messages.ReqVolumeUp:
		m.changeVolume(0.1)
	case messages.ReqRateUp:
		err = m.rateTrack(messages.RatingUp)
	case messages.ReqRateDown:
		err = m.rateTrack(messages.RatingDown)
	case messages.ReqUnRate:
		err = m.rateTrack(messages.RatingClear)
	case messages.ReqQuit:
		m.quit()
	}
	if err != nil {
		logrus.Warnf("model: request %s: %v", req.Kind, err)
	}
	m.dirty = true
}

// processMessages drains any currently-queued Requests and discards any
// stale State events on the Model's own subscription (ground: model.rs
// process_messages; the Model doesn't subscribe to its own broadcast, so
// the Go translation is just the Request drain).
func (m *Model) processMessages() {
	for {
		select {
		case req := <-m.requests.Receive():
			m.handleRequest(req)
		default:
			return
		}
	}
}

func (m *Model) ensureConnection() {
	if !m.connected() {
		m.dirty = true
		logrus.Debug("model: connection no longer active, reconnecting")
		m.connect()
	}
}

// driveState advances the session state machine by one step (ground:
// model.rs drive_state; see its own stage-by-stage comment for the overall
// Disconnected -> Connected -> Tuned -> Playing progression).
func (m *Model) driveState() {
	switch {
	case !m.connected():
		if _, _, ok := m.config.Credentials().Get(); ok {
			m.connect()
		} else {
			m.disconnect()
		}
	case !m.tunedOK():
		if len(m.stations) == 0 {
			if err := m.fillStationList(); err != nil {
				logrus.Warnf("model: fill station list: %v", err)
			}
		}
		if len(m.stations) != 0 {
			if stationID, ok := m.config.StationID(); ok {
				logrus.Info("model: station list populated, tuning to configured station")
				if err := m.tune(stationID); err != nil {
					logrus.Warnf("model: tune %s: %v", stationID, err)
				}
			}
		}
	case m.getPlaying() == nil:
		if err := m.refillPlaylist(); err != nil {
			logrus.Warnf("model: refill playlist: %v", err)
		}
		m.start()
	default:
		logrus.Trace("model: happily playing our track")
	}
}

// Update runs a single process/ensure/drive tick and reports whether any
// state changed since the last Update or RunUntilQuit iteration. Kept for
// tests and single-step driving; RunUntilQuit is the normal entry point.
func (m *Model) Update() bool {
	m.processMessages()
	m.ensureConnection()
	m.driveState()

	wasDirty := m.dirty
	m.dirty = false
	return wasDirty
}

// handlePandoraResult applies one ApiResult (ground: model.rs
// handle_pandora_result).
func (m *Model) handlePandoraResult(result messages.ApiResult) {
	switch result.Kind {
	case messages.ApiResConnected:
		m.sessionConnected = true
		m.pendingConnect = false
		m.publish(messages.StateConnected())
		if m.tunedOK() {
			m.publish(messages.StateTuned(m.tuned()))
		}
		m.publish(messages.StateVolume(m.volume()))
	case messages.ApiResAuthFailed:
		m.sessionConnected = false
		m.pendingConnect = false
		logrus.Errorf("model: %s", result.Message)
		m.publish(messages.StateAuthFailed(result.Message))
		m.clearStations()
	case messages.ApiResDisconnected:
		m.sessionConnected = false
		m.pendingConnect = false
	case messages.ApiResStationList:
		m.pendingStationList = false
		for id, name := range result.Stations {
			m.addStation(id, name)
		}
		if m.tunedOK() {
			if _, ok := m.stations[m.tuned()]; !ok {
				logrus.Warnf("model: tuned station %s does not appear in station list", m.tuned())
				m.untune()
			}
		}
	case messages.ApiResPlaylist:
		m.pendingPlaylist = false
		logrus.Debug("model: refilling playlist with new tracks")
		m.extendPlaylist(result.Tracks)
	case messages.ApiResRated:
		if t := m.getPlaying(); t != nil {
			t.Rating = result.Rating
			m.dirty = true
			m.notifyPlaying()
		}
	case messages.ApiResError:
		logrus.Errorf("model: pandora task error: %s", result.Message)
		m.pendingStationList = false
		m.pendingPlaylist = false
	case messages.ApiResQuitAck:
	}
}

// RunUntilQuit is the Model's event loop (ground: model.rs run_until_quit's
// biased tokio::select!, translated to a Go select with the same request
// source draining a burst before reselecting, and ctx providing the
// process-level shutdown path the Rust version gets from its caller
// cancelling the surrounding task).
func (m *Model) RunUntilQuit(ctx context.Context, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	defer m.flush()

	for !m.quitting() {
		select {
		case <-ctx.Done():
			m.quit()
			return
		case req := <-m.requests.Receive():
			m.handleRequest(req)
			m.dirty = true
			m.processMessages()
		case result := <-m.apiResults:
			m.handlePandoraResult(result)
			m.drainApiResults()
		case <-ticker.C:
			m.processMessages()
			m.ensureConnection()
			m.driveState()
		}
	}
}

func (m *Model) drainApiResults() {
	for {
		select {
		case result := <-m.apiResults:
			m.handlePandoraResult(result)
		default:
			return
		}
	}
}

func (m *Model) flush() {
	logrus.Trace("model: flushing config file to disk")
	if err := m.config.Flush(); err != nil {
		logrus.Errorf("model: failed committing configuration changes to file: %v", err)
	}
	logrus.Trace("model: application data model has shut down")
}

func (m *Model) extendPlaylist(tracks []models.Track) {
	if len(tracks) > 0 {
		m.dirty = true
	}
	logrus.Debugf("model: extending playlist with %d tracks", len(tracks))
	for _, track := range tracks {
		logrus.Debugf("model: adding track to fetchlist: %s", track.Title)
		m.fetchlist = append(m.fetchlist, track)
		m.publish(messages.StateTrackCaching(track))
	}
}

func (m *Model) unfetchTrack(track models.Track) {
	for i, t := range m.fetchlist {
		if t.TrackToken == track.TrackToken {
			m.fetchlist[i] = m.fetchlist[len(m.fetchlist)-1]
			m.fetchlist = m.fetchlist[:len(m.fetchlist)-1]
			m.dirty = true
			return
		}
	}
}

func (m *Model) addTrack(track models.Track) error {
	lenBefore := m.playlistLen()
	if err := m.enqueueTrack(track); err != nil {
		return err
	}
	if lenBefore == 0 && m.playlistLen() > lenBefore {
		m.notifyNext()
	}
	return nil
}

func (m *Model) stop(reason models.StopReason) {
	if m.getPlaying() == nil {
		logrus.Debug("model: no track is currently playing, nothing to do")
		return
	}
	logrus.Infof("model: stopping track: %s", reason)
	if m.config.CachePolicy().EvictCompleted() {
		logrus.Trace("model: eviction policy requires evicting track")
		m.currentTrack.RemoveFromCache()
	} else {
		logrus.Trace("model: not evicting completed track, per configured cache eviction policy")
	}

	m.playerPaused = false
	m.currentTrack = nil
	m.stopReason = reason
	m.playerProgress = nil
	m.playerLength = nil

	m.dirty = true
	m.publish(messages.StateStopped(reason))
}

func (m *Model) started() bool {
	return m.playerProgress != nil && *m.playerProgress > 0
}

func (m *Model) start() {
	if m.started() {
		logrus.Debug("model: track already started")
		return
	}
	logrus.Debugf("model: no tracks started yet. playlist: %d + %d pending", m.playlistLen(), m.pendingLen())
	track, err := m.readyNextTrack()
	if err != nil {
		logrus.Warnf("model: ready next track: %v", err)
		return
	}
	if track != nil {
		m.currentTrack = track
		zero := time.Duration(0)
		m.playerProgress = &zero
		m.playerLength = &track.Duration
		m.dirty = true
		m.notifyPlaying()
		m.notifyNext()
	} else {
		logrus.Debug("model: requested to start track, but no tracks are ready")
		m.publish(messages.StateBuffering())
	}
}

func (m *Model) paused() bool { return m.playerPaused }

func (m *Model) pause() {
	if m.paused() {
		return
	}
	if m.getPlaying() != nil && m.playerProgress != nil {
		m.playerPaused = true
		m.dirty = true
		m.publish(messages.StatePaused(*m.playerProgress))
	}
}

func (m *Model) unpause() {
	if !m.paused() {
		return
	}
	if m.getPlaying() != nil && m.playerProgress != nil {
		m.playerPaused = false
		m.dirty = true
		m.publish(messages.StatePlaying(*m.playerProgress))
	}
}

func (m *Model) togglePause() {
	if m.paused() {
		m.unpause()
	} else {
		m.pause()
	}
}

func (m *Model) volume() float64 { return m.playerVolume }

func (m *Model) setVolume(v float64) {
	v = clampVolume(v)
	if v == m.playerVolume {
		return
	}
	m.playerVolume = v
	m.dirty = true
	m.config.SetVolume(v)
	m.publish(messages.StateVolume(v))
}

func (m *Model) changeVolume(delta float64) {
	m.setVolume(m.playerVolume + delta)
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (m *Model) muted() bool { return m.playerMuted }

func (m *Model) mute() {
	if m.muted() {
		return
	}
	m.playerMuted = true
	m.dirty = true
	m.publish(messages.StateMuted())
}

func (m *Model) unmute() {
	if !m.muted() {
		return
	}
	m.playerMuted = false
	m.dirty = true
	m.publish(messages.StateUnmuted())
}
