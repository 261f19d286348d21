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
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
)

func TestCacheFilePath_SanitizesTokenAndPicksExtension(t *testing.T) {
	got := cacheFilePath("/tmp/cache", "weird/token:1", "audio/mpeg", "")
	assert.Equal(t, "/tmp/cache/weird_token_1.mp3", got)
}

func TestCacheFilePath_FallsBackToURLExtension(t *testing.T) {
	got := cacheFilePath("/tmp/cache", "tok", "", "https://example.com/x.flac")
	assert.Equal(t, "/tmp/cache/tok.flac", got)
}

func TestCacheFilePath_DefaultsToMp3(t *testing.T) {
	got := cacheFilePath("/tmp/cache", "tok", "", "https://example.com/x")
	assert.Equal(t, "/tmp/cache/tok.mp3", got)
}

func TestFetchRequest_SuccessfulDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-mp3-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	track := models.Track{TrackToken: "t1", StationID: "s1", AudioURL: srv.URL}
	r := newFetchRequest(track)
	r.start(srv.Client(), dir)

	require.Eventually(t, func() bool {
		r.updateState()
		return r.finished()
	}, time.Second, 5*time.Millisecond)

	assert.True(t, r.track.Cached())
}

func TestFetchRequest_FailsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	track := models.Track{TrackToken: "t2", StationID: "s1", AudioURL: srv.URL}
	r := newFetchRequest(track)
	r.start(srv.Client(), dir)

	require.Eventually(t, func() bool {
		r.updateState()
		return r.isFailed()
	}, time.Second, 5*time.Millisecond)

	assert.True(t, r.retriable())
}

func TestFetchRequest_CacheHitSkipsDownload(t *testing.T) {
	dir := t.TempDir()
	track := models.Track{TrackToken: "t3", StationID: "s1", CachedPath: dir + "/already.mp3"}
	require.NoError(t, os.WriteFile(track.CachedPath, []byte("x"), 0o644))

	r := newFetchRequest(track)
	assert.True(t, r.completed)
	r.start(nil, dir)
	assert.False(t, r.running)
}

func TestFetchRequest_RetryIncrementsCountUpToLimit(t *testing.T) {
	track := models.Track{TrackToken: "t4", StationID: "s1"}
	r := newFetchRequest(track)
	for i := 0; i < maxRetries; i++ {
		assert.True(t, r.retriable())
		r.retryCount++
	}
	assert.False(t, r.retriable())
}

type fakeSender struct {
	sent []messages.Request
}

func (f *fakeSender) TrySend(r messages.Request) error {
	f.sent = append(f.sent, r)
	return nil
}

func TestTrackCacher_CacheHitPublishesAddTrackImmediately(t *testing.T) {
	sender := &fakeSender{}
	stateCh := make(chan messages.State, 1)
	dir := t.TempDir()

	c := NewTrackCacher(sender, stateCh, dir)
	require.NoError(t, os.WriteFile(dir+"/cached.mp3", []byte("x"), 0o644))
	track := models.Track{TrackToken: "t5", StationID: "s1", CachedPath: dir + "/cached.mp3"}

	c.stationID = "s1"
	c.hasStation = true
	c.fetchTrack(track)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, messages.ReqAddTrack, sender.sent[0].Kind)
}

func TestTrackCacher_IgnoresTrackFromOtherStation(t *testing.T) {
	sender := &fakeSender{}
	stateCh := make(chan messages.State, 1)
	c := NewTrackCacher(sender, stateCh, t.TempDir())
	c.stationID = "s1"
	c.hasStation = true

	c.handleState(messages.StateTrackCaching(models.Track{TrackToken: "t6", StationID: "s2"}))
	assert.Empty(t, sender.sent)
	assert.Empty(t, c.requests)
}

func TestTrackCacher_StationChangeCancelsInFlight(t *testing.T) {
	sender := &fakeSender{}
	stateCh := make(chan messages.State, 1)
	dir := t.TempDir()
	c := NewTrackCacher(sender, stateCh, dir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	c.handleState(messages.StateTuned("s1"))
	c.fetchTrack(models.Track{TrackToken: "t7", StationID: "s1", AudioURL: srv.URL})
	require.Len(t, c.requests, 1)

	c.handleState(messages.StateTuned("s2"))
	assert.Empty(t, c.requests)
}

func TestTrackCacher_DuplicateTrackCachingForInFlightTokenIsIgnored(t *testing.T) {
	sender := &fakeSender{}
	stateCh := make(chan messages.State, 1)
	dir := t.TempDir()
	c := NewTrackCacher(sender, stateCh, dir)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	c.handleState(messages.StateTuned("s1"))
	track := models.Track{TrackToken: "t8", StationID: "s1", AudioURL: srv.URL}

	c.fetchTrack(track)
	require.Len(t, c.requests, 1)
	inFlight := c.requests[0]

	c.fetchTrack(track)
	require.Len(t, c.requests, 1)
	assert.Same(t, inFlight, c.requests[0])
	assert.Empty(t, sender.sent)
}
