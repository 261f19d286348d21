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

package player

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

// Sampling rate and buffer period the speaker is initialized with, and the
// decibel range the volume control is mapped onto (ground: jellycli
// player/audio.go's config.AudioSamplingRate/AudioBufferPeriod/
// AudioMinVolumedB/AudioMaxVolumedB, inlined here since this package has no
// Jellyfin-style global AppConfig to read them from).
const (
	samplingRate  = beep.SampleRate(44100)
	bufferPeriod  = 150 * time.Millisecond
	minVolumeDB   = -10.0
	maxVolumeDB   = 0.0
	volumeLogBase = 2.0
)

// audio owns the beep decode/playback pipeline for a single track at a time.
// It never talks to the Request/State buses directly; Player wraps it and
// does that translation, keeping the decode/mixer plumbing (ground: jellycli
// player/audio.go) independent of Panharmonicon's message shapes.
type audio struct {
	streamer beep.StreamSeekCloser
	file     *os.File

	ctrl   *beep.Ctrl
	volume *effects.Volume
	mixer  *beep.Mixer

	onComplete func()
}

func newAudio() (*audio, error) {
	a := &audio{
		ctrl:  &beep.Ctrl{},
		mixer: &beep.Mixer{},
	}
	a.volume = &effects.Volume{
		Base:   volumeLogBase,
		Volume: (minVolumeDB + maxVolumeDB) / 2,
	}
	a.ctrl.Streamer = a.mixer
	a.volume.Streamer = a.ctrl

	bufferSize := int(samplingRate) / 1000 * int(bufferPeriod.Milliseconds())
	if err := speaker.Init(samplingRate, bufferSize); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return a, nil
}

// play decodes path and starts streaming it, replacing whatever was playing
// before. The format is inferred from the file extension, matching the
// cache's own <token>.<ext> naming.
func (a *audio) play(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cached track: %w", err)
	}

	var streamer beep.StreamSeekCloser
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "mp3":
		streamer, _, err = mp3.Decode(f)
	case "flac":
		streamer, _, err = flac.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("unsupported audio format %q", ext)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decode audio stream: %w", err)
	}

	seq := beep.Seq(streamer, beep.Callback(a.streamCompleted))

	speaker.Lock()
	oldStreamer, oldFile := a.streamer, a.file
	a.mixer.Clear()
	a.streamer, a.file = streamer, f
	a.mixer.Add(seq)
	a.ctrl.Paused = false
	speaker.Unlock()

	a.closeStream(oldStreamer, oldFile)

	speaker.Play(a.volume)
	return nil
}

func (a *audio) streamCompleted() {
	logrus.Debug("player: stream complete")
	if a.onComplete != nil {
		a.onComplete()
	}
}

// stop halts playback and releases the current stream, if any.
func (a *audio) stop() {
	speaker.Lock()
	old, oldFile := a.streamer, a.file
	a.mixer.Clear()
	a.streamer, a.file = nil, nil
	speaker.Unlock()
	a.closeStream(old, oldFile)
}

func (a *audio) closeStream(s beep.StreamSeekCloser, f *os.File) {
	if s != nil {
		if err := s.Close(); err != nil {
			logrus.Errorf("player: close stream: %v", err)
		}
	}
	if f != nil {
		if err := f.Close(); err != nil {
			logrus.Errorf("player: close cached file: %v", err)
		}
	}
}

func (a *audio) setPaused(paused bool) {
	speaker.Lock()
	defer speaker.Unlock()
	a.ctrl.Paused = paused
}

func (a *audio) setMuted(muted bool) {
	speaker.Lock()
	defer speaker.Unlock()
	a.volume.Silent = muted
}

// setVolume maps a linear [0,1] volume onto the configured decibel range.
func (a *audio) setVolume(linear float64) {
	if linear < 0 {
		linear = 0
	} else if linear > 1 {
		linear = 1
	}
	db := minVolumeDB + linear*(maxVolumeDB-minVolumeDB)

	speaker.Lock()
	defer speaker.Unlock()
	a.volume.Volume = db
	a.volume.Silent = false
}

// elapsed reports how far into the current stream playback has progressed.
func (a *audio) elapsed() time.Duration {
	speaker.Lock()
	defer speaker.Unlock()
	if a.streamer == nil {
		return 0
	}
	samples := a.streamer.Position()
	return time.Duration(samples) * time.Second / time.Duration(samplingRate)
}
