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

// Package pandora implements the ApiWorker: a single task that serializes
// all Pandora network traffic, maintains a two-tier session (partner then
// user login), and transparently retries a failing user-scoped call once
// after a forced re-login.
//
// Ground: original_source/src/pandora/mod.rs (run_pandora_task dispatch
// loop, do_connect) and src/pandora/api.rs (PandoraSession, PartnerKeys,
// retry-once-after-user_login shape repeated on every user-scoped method).
// The concrete Pandora wire encoding is out of scope (spec.md §1); this
// package defines a narrow Client interface so the ApiWorker's session and
// retry logic is exercised independent of any particular HTTP
// implementation, and ships one concrete httpClient.
package pandora

import (
	"context"

	"github.com/tvierimaa/panharmonicon/models"
)

// Client is the narrow surface the ApiWorker drives. A concrete
// implementation owns the actual wire format; httpClient is this package's.
type Client interface {
	// PartnerLogin establishes the application-level session. Idempotent:
	// implementations should no-op if already partner-logged-in.
	PartnerLogin(ctx context.Context) error
	// UserLogin establishes the user-level session using the given
	// credentials, after ensuring PartnerLogin has run.
	UserLogin(ctx context.Context, username, password string) error
	// Connected reports whether all five session tokens are present.
	Connected() bool
	// Reset clears all session tokens (partner and user).
	Reset()

	GetStationList(ctx context.Context) (map[string]string, error)
	GetPlaylist(ctx context.Context, stationID string) ([]models.Track, error)
	AddFeedback(ctx context.Context, track models.Track, positive bool) error
	DeleteFeedbackForTrack(ctx context.Context, track models.Track) error
}
