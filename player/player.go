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

// Package player decodes and plays locally cached tracks (ground: jellycli
// player/audio.go's faiface/beep pipeline), adapted from "stream from the
// server" to "decode from Track.CachedPath" and from a queue-owning
// controller to a pure observer: it holds no state authority, reacting only
// to State events from the Model and reporting progress/completion back as
// Requests (spec.md §4.4).
package player

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/messages"
	"github.com/tvierimaa/panharmonicon/models"
	"github.com/tvierimaa/panharmonicon/task"
)

// progressInterval is how often Player reports UpdateTrackProgress while a
// track is playing (spec.md §4.4: "≥ once per second while playing").
const progressInterval = 1 * time.Second

// audioBackend is the narrow surface Player drives. *audio is the real,
// beep/speaker-backed implementation; tests substitute a fake so Player's
// dispatch logic is exercised without a real audio device.
type audioBackend interface {
	play(path string) error
	stop()
	setPaused(paused bool)
	setMuted(muted bool)
	setVolume(linear float64)
	elapsed() time.Duration
}

// Player is the spec's Player: a task.Tasker (ground: task/task.go, reused
// verbatim, same embedding style as cache.TrackCacher and pandora.ApiWorker)
// that owns the beep decode/playback pipeline and nothing else.
type Player struct {
	task.Task

	audio audioBackend

	requests bus.RequestSender
	states   <-chan messages.State

	playing bool
	paused  bool
}

// NewPlayer builds the Player. requests is where UpdateTrackProgress and
// Stop(Completed) Requests are published; states is this Player's dedicated
// subscription to the Model's State broadcast.
func NewPlayer(requests bus.RequestSender, states <-chan messages.State) (*Player, error) {
	a, err := newAudio()
	if err != nil {
		return nil, err
	}
	p := newPlayer(a, requests, states)
	a.onComplete = p.trackComplete
	return p, nil
}

func newPlayer(backend audioBackend, requests bus.RequestSender, states <-chan messages.State) *Player {
	p := &Player{
		audio:    backend,
		requests: requests,
		states:   states,
	}
	p.Name = "Player"
	p.Task.SetLoop(p.loop)
	return p
}

func (p *Player) loop() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.StopChan():
			p.audio.stop()
			return
		case s, ok := <-p.states:
			if !ok {
				return
			}
			p.handleState(s)
			if s.Kind == messages.StQuit {
				p.audio.stop()
				return
			}
		case <-ticker.C:
			if p.playing && !p.paused {
				p.publish(messages.UpdateTrackProgress(p.audio.elapsed()))
			}
		}
	}
}

func (p *Player) handleState(s messages.State) {
	switch s.Kind {
	case messages.StTrackStarting:
		p.playing = true
		p.paused = false
		if err := p.audio.play(s.Track.CachedPath); err != nil {
			logrus.Errorf("player: play %s: %v", s.Track.Title, err)
			p.playing = false
			p.publish(messages.FetchFailed(s.Track))
		}
	case messages.StPaused:
		p.paused = true
		p.audio.setPaused(true)
	case messages.StPlaying:
		p.paused = false
		p.audio.setPaused(false)
	case messages.StStopped:
		p.playing = false
		p.paused = false
		p.audio.stop()
	case messages.StVolume:
		p.audio.setVolume(s.Volume)
	case messages.StMuted:
		p.audio.setMuted(true)
	case messages.StUnmuted:
		p.audio.setMuted(false)
	}
}

// trackComplete is the beep callback fired when a decoded stream reaches
// EOF. It only ever reports Completed; a cut-short stop is always preceded
// by a Model-issued Stop that updates p.playing before audio.stop() runs,
// so a completion callback firing after that is simply ignored.
func (p *Player) trackComplete() {
	if !p.playing {
		return
	}
	p.playing = false
	p.publish(messages.Stop(models.StopReasonCompleted))
}

func (p *Player) publish(r messages.Request) {
	if err := p.requests.TrySend(r); err != nil {
		logrus.Warnf("player: %v", err)
	}
}
