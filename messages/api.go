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

import "github.com/tvierimaa/panharmonicon/models"

// ApiCommandKind discriminates commands the Model sends to the ApiWorker.
type ApiCommandKind int

const (
	ApiCmdConnect ApiCommandKind = iota
	ApiCmdDisconnect
	ApiCmdGetStationList
	ApiCmdGetPlaylist
	ApiCmdRateTrack
	ApiCmdQuit
)

func (k ApiCommandKind) String() string {
	switch k {
	case ApiCmdConnect:
		return "Connect"
	case ApiCmdDisconnect:
		return "Disconnect"
	case ApiCmdGetStationList:
		return "GetStationList"
	case ApiCmdGetPlaylist:
		return "GetPlaylist"
	case ApiCmdRateTrack:
		return "RateTrack"
	case ApiCmdQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}

// ApiCommand is sent on the bounded single-producer single-consumer channel
// from the Model to the ApiWorker.
type ApiCommand struct {
	Kind ApiCommandKind

	StationID string       // GetPlaylist
	Track     models.Track // RateTrack
	// Rating is the desired rating for RateTrack: RatingUp, RatingDown or
	// RatingClear (delete_feedback_for_track).
	Rating RatingDirection
}

// RatingDirection mirrors the Rust Option<bool> passed to RateTrack:
// Some(true) = thumbs up, Some(false) = thumbs down, None = clear.
type RatingDirection int

const (
	RatingUp RatingDirection = iota
	RatingDown
	RatingClear
)

func ApiConnect() ApiCommand    { return ApiCommand{Kind: ApiCmdConnect} }
func ApiDisconnect() ApiCommand { return ApiCommand{Kind: ApiCmdDisconnect} }
func ApiGetStationList() ApiCommand {
	return ApiCommand{Kind: ApiCmdGetStationList}
}
func ApiGetPlaylist(stationID string) ApiCommand {
	return ApiCommand{Kind: ApiCmdGetPlaylist, StationID: stationID}
}
func ApiRateTrack(t models.Track, dir RatingDirection) ApiCommand {
	return ApiCommand{Kind: ApiCmdRateTrack, Track: t, Rating: dir}
}
func ApiQuit() ApiCommand { return ApiCommand{Kind: ApiCmdQuit} }

// ApiResultKind discriminates results the ApiWorker returns to the Model.
type ApiResultKind int

const (
	ApiResConnected ApiResultKind = iota
	ApiResAuthFailed
	ApiResDisconnected
	ApiResStationList
	ApiResPlaylist
	ApiResRated
	ApiResError
	ApiResQuitAck
)

func (k ApiResultKind) String() string {
	switch k {
	case ApiResConnected:
		return "Connected"
	case ApiResAuthFailed:
		return "AuthFailed"
	case ApiResDisconnected:
		return "Disconnected"
	case ApiResStationList:
		return "StationList"
	case ApiResPlaylist:
		return "Playlist"
	case ApiResRated:
		return "Rated"
	case ApiResError:
		return "Error"
	case ApiResQuitAck:
		return "QuitAck"
	default:
		return "Unknown"
	}
}

// ApiResult is sent on the bounded single-producer single-consumer channel
// from the ApiWorker back to the Model.
type ApiResult struct {
	Kind ApiResultKind

	Message  string             // AuthFailed, Error
	Stations map[string]string  // StationList: id -> name
	Tracks   []models.Track     // Playlist
	Rating   int                // Rated: 1 thumbs-up, 0 thumbs-down/cleared
}

func ApiConnected() ApiResult { return ApiResult{Kind: ApiResConnected} }
func ApiAuthFailed(msg string) ApiResult {
	return ApiResult{Kind: ApiResAuthFailed, Message: msg}
}
func ApiDisconnected() ApiResult { return ApiResult{Kind: ApiResDisconnected} }
func ApiStationList(stations map[string]string) ApiResult {
	return ApiResult{Kind: ApiResStationList, Stations: stations}
}
func ApiPlaylist(tracks []models.Track) ApiResult {
	return ApiResult{Kind: ApiResPlaylist, Tracks: tracks}
}
func ApiRated(rating int) ApiResult {
	return ApiResult{Kind: ApiResRated, Rating: rating}
}
func ApiError(msg string) ApiResult {
	return ApiResult{Kind: ApiResError, Message: msg}
}
func ApiQuitAck() ApiResult { return ApiResult{Kind: ApiResQuitAck} }
