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
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
	"github.com/tvierimaa/panharmonicon/task"
)

// pollInterval is how often TrackCacher re-evaluates in-flight downloads
// between incoming State events. The Rust original is driven by an external
// async executor polling JoinHandles; a ticker is the Go equivalent of that
// polling cadence.
const pollInterval = 250 * time.Millisecond

// TrackCacher is the PrefetchCache: it watches State::TrackCaching events
// for the currently tuned station, downloads each track's audio, and
// reports completion via Request::AddTrack or failure via
// Request::FetchFailed. Runs as a task.Tasker, the same embedding jellycli's
// Player uses.
type TrackCacher struct {
	task.Task

	client    *http.Client
	cacheRoot string

	requests   []*fetchRequest
	stationID  string
	hasStation bool

	requestSender bus.RequestSender
	stateCh       <-chan messages.State
}

// NewTrackCacher builds a PrefetchCache. cacheRoot is created if missing on
// first download; requestSender publishes AddTrack/FetchFailed back to the
// Model, stateCh is this cacher's State subscription (from bus.StateBus).
func NewTrackCacher(requestSender bus.RequestSender, stateCh <-chan messages.State, cacheRoot string) *TrackCacher {
	c := &TrackCacher{
		client:        &http.Client{Timeout: taskTimeout},
		cacheRoot:     cacheRoot,
		requests:      make([]*fetchRequest, 0, 8),
		requestSender: requestSender,
		stateCh:       stateCh,
	}
	c.Name = "PrefetchCache"
	c.Task.SetLoop(c.loop)
	return c
}

func (c *TrackCacher) loop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.StopChan():
			c.cancelAll()
			return
		case s, ok := <-c.stateCh:
			if !ok {
				return
			}
			c.handleState(s)
			c.drainState()
		case <-ticker.C:
			c.updateRequests()
		}
	}
}

// drainState processes any further State events already queued, matching
// the Model's own "drain remaining ready messages from the same source"
// event-loop discipline (spec.md §4.1).
func (c *TrackCacher) drainState() {
	for {
		select {
		case s, ok := <-c.stateCh:
			if !ok {
				return
			}
			c.handleState(s)
		default:
			return
		}
	}
}

func (c *TrackCacher) handleState(s messages.State) {
	switch s.Kind {
	case messages.StTuned:
		if !c.hasStation || c.stationID != s.StationID {
			logrus.Trace("cache: tuned to new station, cancelling in-flight fetches")
			c.cancelAll()
		}
		c.stationID = s.StationID
		c.hasStation = true
	case messages.StConnected:
		logrus.Trace("cache: (re)connected, no longer tuned, cancelling in-flight fetches")
		c.cancelAll()
		c.hasStation = false
		c.stationID = ""
	case messages.StTrackCaching:
		if c.hasStation && c.stationID == s.Track.StationID {
			c.fetchTrack(s.Track)
		} else {
			logrus.Warnf("cache: ignoring cache request for track from station %s, tuned to %s",
				s.Track.StationID, c.stationID)
		}
	}
}

// fetchTrack starts (or short-circuits) a download for t. If the track is
// already cache-hit, it publishes AddTrack immediately without allocating a
// fetchRequest (ground: caching.rs TrackCacher::fetch_track's cache-hit
// branch). A token already in c.requests is left alone: at most one
// concurrent download per track_token (spec.md §4.2).
func (c *TrackCacher) fetchTrack(t models.Track) {
	if t.Cached() {
		logrus.Tracef("cache: track %s already cached, not fetching", t.TrackToken)
		c.publish(messages.AddTrack(t))
		return
	}

	for _, r := range c.requests {
		if r.track.TrackToken == t.TrackToken {
			logrus.Tracef("cache: fetch already in flight for track %s, ignoring duplicate", t.TrackToken)
			return
		}
	}

	logrus.Tracef("cache: fetching track %s", t.TrackToken)
	r := newFetchRequest(t)
	r.start(c.client, c.cacheRoot)
	c.requests = append(c.requests, r)
}

// cancelAll aborts every in-flight request (station change or reconnect).
func (c *TrackCacher) cancelAll() {
	for _, r := range c.requests {
		r.abort()
	}
	c.requests = c.requests[:0]
}

// updateRequests is caching.rs TrackCacher::update_requests translated:
// poll each in-flight request, partition into completed/retryable/active,
// and publish AddTrack/FetchFailed for anything that left the in-flight set.
func (c *TrackCacher) updateRequests() {
	for _, r := range c.requests {
		r.updateState()
	}

	var active []*fetchRequest
	for _, r := range c.requests {
		switch {
		case r.finished(), r.isFailed() && !r.retriable():
			c.reportOutcome(r)
		case r.isFailed() && r.retriable():
			logrus.Warnf("cache: retrying fetch for track %s (retry %d)", r.track.TrackToken, r.retryCount)
			r.restart(c.client, c.cacheRoot)
			active = append(active, r)
		default:
			active = append(active, r)
		}
	}
	c.requests = active
}

func (c *TrackCacher) reportOutcome(r *fetchRequest) {
	if r.finished() && !r.isFailed() && r.track.Cached() {
		logrus.Tracef("cache: fetch complete for track %s", r.track.TrackToken)
		c.publish(messages.AddTrack(r.track))
		return
	}
	logrus.Debugf("cache: fetch failed terminally for track %s", r.track.TrackToken)
	c.publish(messages.FetchFailed(r.track))
}

func (c *TrackCacher) publish(req messages.Request) {
	if err := c.requestSender.TrySend(req); err != nil {
		logrus.Errorf("cache: failed to publish %s: %v", req.Kind, err)
	}
}
