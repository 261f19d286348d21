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

// Package models contains the data types shared across Panharmonicon's
// subsystems: the track & station catalog, saved credentials and the cache
// eviction policy. Nothing in this package owns a channel or a goroutine;
// it is pure data.
package models

import (
	"os"
	"time"
)

// Track is a single, session-scoped play instance of a song as returned by
// a station playlist. TrackToken is unique per play instance; MusicID
// identifies the underlying song and may repeat across plays.
//
// A Track is immutable once published by the ApiWorker, except for Rating
// (updated after a successful rate request) and CachedPath (populated once
// the PrefetchCache finishes downloading the audio).
type Track struct {
	TrackToken string
	MusicID    string
	StationID  string
	AudioURL   string
	Artist     string
	Album      string
	Title      string

	// Rating is 0 (unrated), positive (liked) or negative (disliked).
	Rating int

	// Duration is the track length, or zero if the server didn't report one.
	Duration time.Duration

	// CachedPath is empty until the PrefetchCache has a complete file on disk.
	CachedPath string
}

// Cached reports whether the track has a cache file on disk.
func (t Track) Cached() bool {
	if t.CachedPath == "" {
		return false
	}
	info, err := os.Stat(t.CachedPath)
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// RemoveFromCache deletes the track's cache file, if any. Missing files are
// not an error: eviction is best-effort.
func (t *Track) RemoveFromCache() {
	if t.CachedPath == "" {
		return
	}
	_ = os.Remove(t.CachedPath)
	t.CachedPath = ""
}

// Station is a remote-defined radio channel.
type Station struct {
	ID   string
	Name string
}
