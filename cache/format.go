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

package cache

import (
	"path/filepath"
	"regexp"
	"strings"
)

// mimeToExtension maps the content types Pandora serves audio as onto a
// cache file extension. Ground: jellycli interfaces.MimeToAudioFormat, whose
// switch-on-MIME shape this mirrors; Pandora's own format set differs
// (mp3/aacplus rather than Jellyfin's flac/ogg/wav) so the table is new.
func mimeToExtension(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/aac", "audio/aacp", "audio/x-aac":
		return "aac"
	case "audio/flac", "audio/x-flac":
		return "flac"
	default:
		return ""
	}
}

var unsafeTokenChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// safeTrackToken maps a track token to a filesystem-safe basename component.
func safeTrackToken(token string) string {
	return unsafeTokenChars.ReplaceAllString(token, "_")
}

// cacheFilePath builds the content-addressed cache path for a track:
// <cache_root>/<safe(track_token)>.<ext> (spec.md §6). audioURL is used to
// guess the extension when the content type wasn't available up front; it
// falls back to "mp3", Pandora's default high-quality stream format.
func cacheFilePath(cacheRoot, trackToken, mimeType, audioURL string) string {
	ext := mimeToExtension(mimeType)
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioURL)), ".")
	}
	if ext == "" {
		ext = "mp3"
	}
	return filepath.Join(cacheRoot, safeTrackToken(trackToken)+"."+ext)
}
