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

// Package cache implements the PrefetchCache: given tracks the Model wants
// played soon, download their audio to a local, content-addressed file and
// report completion or failure back to the Model's request queue.
//
// Ground: original_source/src/caching.rs (FetchRequest/TrackCacher), Go-ified
// from tokio::task::JoinHandle polling into context.CancelFunc + a result
// channel, since Go has no JoinHandle.is_finished() equivalent to poll.
package cache

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tvierimaa/panharmonicon/models"
)

// taskTimeout bounds how long a single fetch may run before it is cancelled
// and marked failed. Ground: caching.rs TASK_TIMEOUT = 20s.
const taskTimeout = 20 * time.Second

// maxRetries caps how many times a failed fetch is restarted. Ground:
// caching.rs FetchRequest::retriable, retry_count < 3.
const maxRetries = 3

// fetchRequest tracks one in-flight (or finished) download.
type fetchRequest struct {
	track      models.Track
	completed  bool
	failed     bool
	retryCount int

	running   bool
	startedAt time.Time
	cancel    context.CancelFunc
	result    chan error
}

func newFetchRequest(track models.Track) *fetchRequest {
	return &fetchRequest{
		track:     track,
		completed: track.Cached(),
	}
}

// start launches the download in a goroutine, or short-circuits if the
// track is already cached (ground: caching.rs FetchRequest::start's
// cache-hit branch).
func (r *fetchRequest) start(client *http.Client, cacheRoot string) {
	if r.running {
		logrus.Warn("cache: restarting an already-started fetch, ignoring")
		return
	}
	if r.track.Cached() {
		r.completed = true
		return
	}

	destPath := cacheFilePath(cacheRoot, r.track.TrackToken, "", r.track.AudioURL)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)

	r.cancel = cancel
	r.result = result
	r.running = true
	r.startedAt = time.Now()

	go func() {
		result <- downloadToCache(ctx, client, r.track.AudioURL, destPath)
	}()

	r.track.CachedPath = destPath
}

// updateState polls the in-flight download without blocking, applying the
// same decision table as caching.rs FetchRequest::update_state.
func (r *fetchRequest) updateState() {
	if !r.running {
		return
	}

	select {
	case err := <-r.result:
		r.running = false
		if err != nil {
			logrus.Warnf("cache: fetch failed for track %s: %v", r.track.TrackToken, err)
			r.failed = true
			r.completed = false
			r.track.RemoveFromCache()
		} else {
			r.completed = r.track.Cached()
			r.failed = !r.completed
		}
		r.cancel = nil
	default:
		if time.Since(r.startedAt) > taskTimeout {
			logrus.Warnf("cache: fetch for track %s exceeded %s, cancelling", r.track.TrackToken, taskTimeout)
			r.cancel()
			r.running = false
			r.failed = true
			r.completed = false
			r.track.RemoveFromCache()
			r.cancel = nil
		}
	}
}

// cancel aborts an in-flight download and deletes any partial file.
func (r *fetchRequest) abort() {
	r.updateState()
	if r.running && r.cancel != nil {
		logrus.Debugf("cache: aborting in-flight fetch for track %s", r.track.TrackToken)
		r.cancel()
		r.running = false
		r.failed = true
		r.completed = false
		r.track.RemoveFromCache()
		r.cancel = nil
	}
}

func (r *fetchRequest) finished() bool {
	return !r.running && r.completed
}

func (r *fetchRequest) isFailed() bool {
	return !r.running && r.failed
}

func (r *fetchRequest) retriable() bool {
	return r.retryCount < maxRetries
}

// restart re-attempts a failed fetch, incrementing the retry counter.
func (r *fetchRequest) restart(client *http.Client, cacheRoot string) {
	if !r.retriable() {
		return
	}
	r.abort()
	r.failed = false
	r.retryCount++
	r.start(client, cacheRoot)
}
