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

package model

import "fmt"

// errInvalidState/errInvalidStation/errTrackNotCached are plain fmt.Errorf
// values rather than a typed error enum (ground: jellycli's own validation
// errors, e.g. config.go's "failed to read user input", are all bare
// fmt.Errorf; original_source/src/errors.rs's thiserror-based Error enum
// doesn't define these specific variants, so there is nothing concrete to
// preserve type-for-type).
func errInvalidState(op, state string) error {
	return fmt.Errorf("invalid operation %q for state %q", op, state)
}

func errInvalidStation(stationID string) error {
	return fmt.Errorf("invalid station: %q", stationID)
}

func errTrackNotCached(title string) error {
	return fmt.Errorf("track not cached: %q", title)
}
