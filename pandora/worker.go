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

package pandora

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
	"github.com/tvierimaa/panharmonicon/task"
)

// CredentialsProvider supplies login credentials on demand, so ApiWorker
// doesn't need to import the config package directly (kept decoupled and
// independently testable, the same narrow-interface style jellycli uses
// for its own interfaces.Api boundary).
type CredentialsProvider interface {
	Credentials() models.Credentials
}

// callTimeout bounds every individual Pandora API call.
const callTimeout = 30 * time.Second

// ApiWorker is the spec's ApiWorker: a single task.Tasker that serializes
// every Pandora API call, ground: original_source/src/pandora/mod.rs
// run_pandora_task's command dispatch loop, translated from a tokio mpsc
// receive loop into a task.Task select loop matching jellycli's own
// Player.loop shape.
type ApiWorker struct {
	task.Task

	client      Client
	credentials CredentialsProvider

	commands chan messages.ApiCommand
	results  chan messages.ApiResult
}

// NewApiWorker builds the ApiWorker. commandCapacity/resultCapacity are the
// bounded single-producer single-consumer channel sizes (spec.md §5).
func NewApiWorker(client Client, credentials CredentialsProvider) *ApiWorker {
	w := &ApiWorker{
		client:      client,
		credentials: credentials,
		commands:    make(chan messages.ApiCommand, 16),
		results:     make(chan messages.ApiResult, 16),
	}
	w.Name = "ApiWorker"
	w.Task.SetLoop(w.loop)
	return w
}

// Commands returns the channel the Model sends ApiCommand values to.
func (w *ApiWorker) Commands() chan<- messages.ApiCommand { return w.commands }

// Results returns the channel the Model receives ApiResult values from.
func (w *ApiWorker) Results() <-chan messages.ApiResult { return w.results }

func (w *ApiWorker) loop() {
	for {
		select {
		case <-w.StopChan():
			return
		case cmd := <-w.commands:
			w.handle(cmd)
			if cmd.Kind == messages.ApiCmdQuit {
				return
			}
		}
	}
}

func (w *ApiWorker) handle(cmd messages.ApiCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	switch cmd.Kind {
	case messages.ApiCmdConnect:
		w.handleConnect(ctx)
	case messages.ApiCmdDisconnect:
		w.client.Reset()
		w.send(messages.ApiDisconnected())
	case messages.ApiCmdGetStationList:
		w.handleGetStationList(ctx)
	case messages.ApiCmdGetPlaylist:
		w.handleGetPlaylist(ctx, cmd.StationID)
	case messages.ApiCmdRateTrack:
		w.handleRateTrack(ctx, cmd.Track, cmd.Rating)
	case messages.ApiCmdQuit:
		w.client.Reset()
		w.send(messages.ApiQuitAck())
	}
}

// handleConnect is do_connect translated: partner login, then user login
// using credentials resolved from the CredentialsProvider, reporting
// AuthFailed rather than tearing down the whole worker on failure.
func (w *ApiWorker) handleConnect(ctx context.Context) {
	if w.client.Connected() {
		logrus.Debug("pandora: already connected, ignoring Connect")
		w.send(messages.ApiConnected())
		return
	}

	creds := w.credentials.Credentials()
	username, password, ok := creds.Get()
	if !ok {
		w.client.Reset()
		w.send(messages.ApiAuthFailed("no usable credentials available"))
		return
	}

	if err := w.client.PartnerLogin(ctx); err != nil {
		logrus.Errorf("pandora: partner login failed: %v", err)
		w.client.Reset()
		w.send(messages.ApiAuthFailed(err.Error()))
		return
	}
	if err := w.client.UserLogin(ctx, username, password); err != nil {
		logrus.Errorf("pandora: user login failed: %v", err)
		w.client.Reset()
		w.send(messages.ApiAuthFailed(err.Error()))
		return
	}

	if !w.client.Connected() {
		w.client.Reset()
		w.send(messages.ApiAuthFailed("session reports not connected after login"))
		return
	}

	logrus.Trace("pandora: connected")
	w.send(messages.ApiConnected())
}

func (w *ApiWorker) handleGetStationList(ctx context.Context) {
	if !w.client.Connected() {
		logrus.Warn("pandora: GetStationList while not connected")
		w.send(messages.ApiError("not connected"))
		return
	}
	stations, err := w.client.GetStationList(ctx)
	if err != nil {
		logrus.Errorf("pandora: get station list failed: %v", err)
		w.send(messages.ApiError(err.Error()))
		return
	}
	w.send(messages.ApiStationList(stations))
}

func (w *ApiWorker) handleGetPlaylist(ctx context.Context, stationID string) {
	if !w.client.Connected() {
		logrus.Warn("pandora: GetPlaylist while not connected")
		w.send(messages.ApiError("not connected"))
		return
	}
	tracks, err := w.client.GetPlaylist(ctx, stationID)
	if err != nil {
		logrus.Errorf("pandora: get playlist failed: %v", err)
		w.send(messages.ApiError(err.Error()))
		return
	}
	logrus.Debugf("pandora: got %d tracks", len(tracks))
	w.send(messages.ApiPlaylist(tracks))
}

// handleRateTrack implements spec.md §4.3's rating protocol: Some(true|false)
// calls add_feedback, None calls delete_feedback_for_track, and the
// reported rating is 1 for thumbs-up, 0 otherwise.
func (w *ApiWorker) handleRateTrack(ctx context.Context, track models.Track, dir messages.RatingDirection) {
	if !w.client.Connected() {
		logrus.Warn("pandora: RateTrack while not connected")
		w.send(messages.ApiError("not connected"))
		return
	}

	var err error
	newRating := 0
	switch dir {
	case messages.RatingUp:
		err = w.client.AddFeedback(ctx, track, true)
		newRating = 1
	case messages.RatingDown:
		err = w.client.AddFeedback(ctx, track, false)
	case messages.RatingClear:
		err = w.client.DeleteFeedbackForTrack(ctx, track)
	}

	if err != nil {
		logrus.Errorf("pandora: rate track failed: %v", err)
		w.send(messages.ApiError(err.Error()))
		return
	}
	w.send(messages.ApiRated(newRating))
}

func (w *ApiWorker) send(r messages.ApiResult) {
	w.results <- r
}
