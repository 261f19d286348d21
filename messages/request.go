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

// Package messages holds the wire types carried on the four channels that
// connect the Model to its collaborators: Request (subsystem -> Model,
// many-to-one), State (Model -> all subscribers, broadcast), ApiCommand
// (Model -> ApiWorker) and ApiResult (ApiWorker -> Model). Each is a
// discriminant field plus payload fields rather than a Rust-style sum type,
// the same shape jellycli uses for models.AudioAction/AudioStatus.
package messages

import (
	"time"

	"github.com/tvierimaa/panharmonicon/models"
)

// RequestKind discriminates Request values.
type RequestKind int

const (
	ReqConnect RequestKind = iota
	ReqTune
	ReqUntune
	ReqFetchFailed
	ReqAddTrack
	ReqStop
	ReqUpdateTrackProgress
	ReqPause
	ReqUnpause
	ReqTogglePause
	ReqMute
	ReqUnmute
	ReqVolume
	ReqVolumeDown
	ReqVolumeUp
	ReqRateUp
	ReqRateDown
	ReqUnRate
	ReqQuit
)

func (k RequestKind) String() string {
	switch k {
	case ReqConnect:
		return "Connect"
	case ReqTune:
		return "Tune"
	case ReqUntune:
		return "Untune"
	case ReqFetchFailed:
		return "FetchFailed"
	case ReqAddTrack:
		return "AddTrack"
	case ReqStop:
		return "Stop"
	case ReqUpdateTrackProgress:
		return "UpdateTrackProgress"
	case ReqPause:
		return "Pause"
	case ReqUnpause:
		return "Unpause"
	case ReqTogglePause:
		return "TogglePause"
	case ReqMute:
		return "Mute"
	case ReqUnmute:
		return "Unmute"
	case ReqVolume:
		return "Volume"
	case ReqVolumeDown:
		return "VolumeDown"
	case ReqVolumeUp:
		return "VolumeUp"
	case ReqRateUp:
		return "RateUp"
	case ReqRateDown:
		return "RateDown"
	case ReqUnRate:
		return "UnRate"
	case ReqQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// Request is sent by any subsystem to the Model's bounded request queue.
// Only the fields relevant to Kind are populated; zero values are ignored by
// the Model for the other Kinds.
type Request struct {
	Kind RequestKind

	StationID string         // Tune
	Track     models.Track   // FetchFailed, AddTrack
	StopReason models.StopReason // Stop
	Elapsed   time.Duration  // UpdateTrackProgress
	Volume    float64        // Volume
}

func Connect() Request { return Request{Kind: ReqConnect} }
func Tune(stationID string) Request {
	return Request{Kind: ReqTune, StationID: stationID}
}
func Untune() Request { return Request{Kind: ReqUntune} }
func FetchFailed(t models.Track) Request {
	return Request{Kind: ReqFetchFailed, Track: t}
}
func AddTrack(t models.Track) Request {
	return Request{Kind: ReqAddTrack, Track: t}
}
func Stop(reason models.StopReason) Request {
	return Request{Kind: ReqStop, StopReason: reason}
}
func UpdateTrackProgress(elapsed time.Duration) Request {
	return Request{Kind: ReqUpdateTrackProgress, Elapsed: elapsed}
}
func Pause() Request        { return Request{Kind: ReqPause} }
func Unpause() Request      { return Request{Kind: ReqUnpause} }
func TogglePause() Request  { return Request{Kind: ReqTogglePause} }
func Mute() Request         { return Request{Kind: ReqMute} }
func Unmute() Request       { return Request{Kind: ReqUnmute} }
func Volume(v float64) Request {
	return Request{Kind: ReqVolume, Volume: v}
}
func VolumeDown() Request { return Request{Kind: ReqVolumeDown} }
func VolumeUp() Request   { return Request{Kind: ReqVolumeUp} }
func RateUp() Request     { return Request{Kind: ReqRateUp} }
func RateDown() Request   { return Request{Kind: ReqRateDown} }
func UnRate() Request     { return Request{Kind: ReqUnRate} }
func Quit() Request       { return Request{Kind: ReqQuit} }
