/*
 * Jellycli is a terminal music player for Jellyfin.
 * Copyright (C) 2020 Tero Vierimaa
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvierimaa/panharmonicon/bus"
	"github.com/tvierimaa/panharmonicon/cache"
	"github.com/tvierimaa/panharmonicon/config"
	"github.com/tvierimaa/panharmonicon/model"
	"github.com/tvierimaa/panharmonicon/mpris"
	"github.com/tvierimaa/panharmonicon/pandora"
	"github.com/tvierimaa/panharmonicon/player"
	"github.com/tvierimaa/panharmonicon/task"
	"github.com/tvierimaa/panharmonicon/ui"
)

// heartbeatInterval is the Model's default drive_state cadence (spec.md §5).
const heartbeatInterval = 100 * time.Millisecond

// run is rootCmd's entry point: load config, build every subsystem, start
// the task.Tasker set, then block in the Model's own event loop until Quit.
// Ground: jellycli cmd/jellycli.go's Application.Start/Stop tasks-list
// shape, generalized from api/content/player to this module's
// cache/pandora/player/mpris/ui set.
func run() error {
	if err := initConfig(); err != nil {
		return err
	}
	initLogging()

	cfg, err := config.Load(AppName)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	defer func() {
		if err := cfg.Flush(); err != nil {
			logrus.Warnf("cmd: flush config on exit: %v", err)
		}
	}()

	logrus.Infof("############# %s ############", AppName)

	requests := bus.NewRequestQueue()
	states := bus.NewStateBus()

	client := pandora.NewHTTPClient(AppName)
	worker := pandora.NewApiWorker(client, cfg)

	m := model.New(requests, states, worker.Commands(), worker.Results(), cfg)

	cacheStates, unsubCache := states.Subscribe()
	cacher := cache.NewTrackCacher(m.Requests(), cacheStates, cacheDir(AppName))

	playerStates, unsubPlayer := states.Subscribe()
	audioPlayer, err := player.NewPlayer(m.Requests(), playerStates)
	if err != nil {
		return fmt.Errorf("cmd: init player: %w", err)
	}

	uiStates, unsubUI := states.Subscribe()
	uiAdapter := ui.NewAdapter(m.Requests(), uiStates, cfg, os.Stdin, os.Stdout)

	if err := uiAdapter.Login(false, config.ReadUserInput); err != nil {
		return fmt.Errorf("cmd: login: %w", err)
	}

	tasks := []task.Tasker{cacher, worker, audioPlayer, uiAdapter}
	unsubscribes := []func(){unsubCache, unsubPlayer, unsubUI}

	mprisStates, unsubMpris := states.Subscribe()
	mprisAdapter, err := mpris.NewAdapter(AppName, m.Requests(), mprisStates)
	if err != nil {
		logrus.Warnf("cmd: mpris adapter unavailable, continuing without desktop media controls: %v", err)
		unsubMpris()
	} else {
		tasks = append(tasks, mprisAdapter)
		unsubscribes = append(unsubscribes, unsubMpris)
	}

	for _, t := range tasks {
		if err := t.Start(); err != nil {
			return fmt.Errorf("cmd: start %T: %w", t, err)
		}
	}
	logrus.Info("panharmonicon started, press Ctrl+C to exit")

	ctx, cancel := context.WithCancel(context.Background())
	go stopOnSignal(cancel)

	m.RunUntilQuit(ctx, heartbeatInterval)

	var firstErr error
	for i := len(tasks) - 1; i >= 0; i-- {
		if err := tasks[i].Stop(); err != nil {
			logrus.Errorf("cmd: stop %T: %v", tasks[i], err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, unsub := range unsubscribes {
		unsub()
	}
	return firstErr
}

func stopOnSignal(cancel context.CancelFunc) {
	sig := catchSignals()
	s := <-sig
	logrus.Infof("cmd: received signal %s, shutting down", s)
	cancel()
}

func catchSignals() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	return c
}

// cacheDir returns the per-user directory audio downloads are cached in.
// Ground: jellycli config.go's Player.LocalCacheDir default
// (os.UserCacheDir + app name), applied here since Panharmonicon has no
// equivalent config field of its own in spec.md §6 (cache location isn't a
// user-facing setting, only the eviction CachePolicy is).
func cacheDir(appName string) string {
	dir, err := os.UserCacheDir()
	if err != nil {
		logrus.Warnf("cmd: could not determine user cache dir, falling back to temp dir: %v", err)
		dir = os.TempDir()
	}
	return path.Join(dir, appName)
}
