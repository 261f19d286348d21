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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCachePolicy_Predicates(t *testing.T) {
	tests := []struct {
		name           string
		policy         CachePolicy
		cachePlaying   bool
		cachePlusOne   bool
		cacheAll       bool
		evictCompleted bool
	}{
		{"none", CacheNone, false, false, false, false},
		{"playing-evict", CachePlayingEvictCompleted, true, false, false, true},
		{"next-evict", CacheNextEvictCompleted, true, true, false, true},
		{"all-no-evict", CacheAllNoEviction, true, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.cachePlaying, tt.policy.CachePlaying())
			assert.Equal(t, tt.cachePlusOne, tt.policy.CachePlusOne())
			assert.Equal(t, tt.cacheAll, tt.policy.CacheAll())
			assert.Equal(t, tt.evictCompleted, tt.policy.EvictCompleted())
		})
	}
}

func TestParseCachePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want CachePolicy
	}{
		{"none", CacheNone},
		{"cache_playing_evict_completed", CachePlayingEvictCompleted},
		{"cache_next_evict_completed", CacheNextEvictCompleted},
		{"cache_all_no_eviction", CacheAllNoEviction},
		{"garbage", CachePlayingEvictCompleted},
		{"", CachePlayingEvictCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCachePolicy(tt.in))
		})
	}
}

func TestCachePolicy_String_RoundTrip(t *testing.T) {
	for _, p := range []CachePolicy{CacheNone, CachePlayingEvictCompleted, CacheNextEvictCompleted, CacheAllNoEviction} {
		assert.Equal(t, p, ParseCachePolicy(p.String()))
	}
}
