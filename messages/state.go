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

package messages

import (
	"time"

	"github.com/tvierimaa/panharmonicon/models"
)

// StateKind discriminates State broadcast events.
type StateKind int

const (
	StConnected StateKind = iota
	StDisconnected
	StAuthFailed
	StAddStation
	StTuned
	StTrackStarting
	StNext
	StTrackCaching
	StPlaying
	StPaused
	StStopped
	StVolume
	StMuted
	StUnmuted
	StBuffering
	StQuit
)

func (k StateKind) String() string {
	switch k {
	case StConnected:
		return "Connected"
	case StDisconnected:
		return "Disconnected"
	case StAuthFailed:
		return "AuthFailed"
	case StAddStation:
		return "AddStation"
	case StTuned:
		return "Tuned"
	case StTrackStarting:
		return "TrackStarting"
	case StNext:
		return "Next"
	case StTrackCaching:
		return "TrackCaching"
	case StPlaying:
		return "Playing"
	case StPaused:
		return "Paused"
	case StStopped:
		return "Stopped"
	case StVolume:
		return "Volume"
	case StMuted:
		return "Muted"
	case StUnmuted:
		return "Unmuted"
	case StBuffering:
		return "Buffering"
	case StQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// State is broadcast by the Model to every subscriber. As with Request, only
// the fields relevant to Kind carry meaning.
type State struct {
	Kind StateKind

	Message     string            // AuthFailed
	StationName string            // AddStation
	StationID   string            // AddStation, Tuned
	Track       models.Track      // TrackStarting, TrackCaching
	NextTrack   *models.Track     // Next (nil when no track is queued)
	Elapsed     time.Duration     // Playing, Paused
	StopReason  models.StopReason // Stopped
	Volume      float64           // Volume
}

func StateConnected() State { return State{Kind: StConnected} }
func StateDisconnected() State { return State{Kind: StDisconnected} }
func StateAuthFailed(msg string) State {
	return State{Kind: StAuthFailed, Message: msg}
}
func StateAddStation(name, id string) State {
	return State{Kind: StAddStation, StationName: name, StationID: id}
}
func StateTuned(id string) State { return State{Kind: StTuned, StationID: id} }
func StateTrackStarting(t models.Track) State {
	return State{Kind: StTrackStarting, Track: t}
}
func StateNext(t *models.Track) State { return State{Kind: StNext, NextTrack: t} }
func StateTrackCaching(t models.Track) State {
	return State{Kind: StTrackCaching, Track: t}
}
func StatePlaying(elapsed time.Duration) State {
	return State{Kind: StPlaying, Elapsed: elapsed}
}
func StatePaused(elapsed time.Duration) State {
	return State{Kind: StPaused, Elapsed: elapsed}
}
func StateStopped(reason models.StopReason) State {
	return State{Kind: StStopped, StopReason: reason}
}
func StateVolume(v float64) State { return State{Kind: StVolume, Volume: v} }
func StateMuted() State           { return State{Kind: StMuted} }
func StateUnmuted() State         { return State{Kind: StUnmuted} }
func StateBuffering() State       { return State{Kind: StBuffering} }
func StateQuit() State            { return State{Kind: StQuit} }
