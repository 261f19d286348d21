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

package models

// CachePolicy controls which tracks the PrefetchCache keeps on disk and
// whether a stopped track's file is evicted. See the truth table in
// spec.md §6.
type CachePolicy int

const (
	CacheNone CachePolicy = iota
	CachePlayingEvictCompleted
	CacheNextEvictCompleted
	CacheAllNoEviction
)

func (p CachePolicy) String() string {
	switch p {
	case CacheNone:
		return "none"
	case CachePlayingEvictCompleted:
		return "cache_playing_evict_completed"
	case CacheNextEvictCompleted:
		return "cache_next_evict_completed"
	case CacheAllNoEviction:
		return "cache_all_no_eviction"
	default:
		return "unknown"
	}
}

// CachePlaying reports whether the currently-playing track should be cached.
func (p CachePolicy) CachePlaying() bool {
	return p != CacheNone
}

// CachePlusOne reports whether the next track should be pre-cached while
// the current one plays.
func (p CachePolicy) CachePlusOne() bool {
	return p == CacheNextEvictCompleted || p == CacheAllNoEviction
}

// CacheAll reports whether every fetched track should be retained.
func (p CachePolicy) CacheAll() bool {
	return p == CacheAllNoEviction
}

// EvictCompleted reports whether a track's cache file should be removed
// once it stops playing.
func (p CachePolicy) EvictCompleted() bool {
	return p == CachePlayingEvictCompleted || p == CacheNextEvictCompleted
}

// ParseCachePolicy parses the on-disk string form of a CachePolicy,
// defaulting to CachePlayingEvictCompleted for an unrecognized value.
func ParseCachePolicy(s string) CachePolicy {
	switch s {
	case "none":
		return CacheNone
	case "cache_next_evict_completed":
		return CacheNextEvictCompleted
	case "cache_all_no_eviction":
		return CacheAllNoEviction
	case "cache_playing_evict_completed":
		return CachePlayingEvictCompleted
	default:
		return CachePlayingEvictCompleted
	}
}
