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

// Credentials is a closed set of ways Panharmonicon can come by a
// username/password pair. It is the Go translation of a tagged union
// (ground: original_source/src/config.rs Credentials enum) via a small
// interface with four concrete implementations, the same shape jellycli
// uses for its own closed config.Backend set.
type Credentials interface {
	// Username returns the stored username, or "" if none is set.
	Username() string
	// Password returns the stored password. KeyringCredentials resolve it
	// from an external secret store at call time; the error is only ever
	// non-nil for that variant.
	Password() (string, error)
	// Get returns (username, password) only if both are non-empty.
	Get() (string, string, bool)
	credentialsMarker()
}

// KeyringLookup resolves a password for a username from an external secret
// store. Implementations live outside this package (config is the only
// caller); this interface exists so KeyringCredentials.Password can be
// exercised without models depending on any particular keyring library.
type KeyringLookup interface {
	Lookup(username string) (string, error)
}

// KeyringCredentials looks its password up from an external secret store at
// read time; only the username is held inline.
type KeyringCredentials struct {
	username string
	lookup   KeyringLookup
}

// NewKeyringCredentials returns Credentials backed by an external secret
// store. lookup may be nil, in which case Password always reports "not found".
func NewKeyringCredentials(username string, lookup KeyringLookup) KeyringCredentials {
	return KeyringCredentials{username: username, lookup: lookup}
}

func (k KeyringCredentials) Username() string { return k.username }

func (k KeyringCredentials) Password() (string, error) {
	if k.lookup == nil || k.username == "" {
		return "", nil
	}
	return k.lookup.Lookup(k.username)
}

func (k KeyringCredentials) Get() (string, string, bool) {
	if k.username == "" {
		return "", "", false
	}
	pass, err := k.Password()
	if err != nil || pass == "" {
		return "", "", false
	}
	return k.username, pass, true
}

func (k KeyringCredentials) credentialsMarker() {}

// ConfigFileCredentials holds both username and password inline, as read
// from the configuration file.
type ConfigFileCredentials struct {
	username string
	password string
}

func NewConfigFileCredentials(username, password string) ConfigFileCredentials {
	return ConfigFileCredentials{username: username, password: password}
}

func (c ConfigFileCredentials) Username() string          { return c.username }
func (c ConfigFileCredentials) Password() (string, error) { return c.password, nil }

func (c ConfigFileCredentials) Get() (string, string, bool) {
	if c.username == "" || c.password == "" {
		return "", "", false
	}
	return c.username, c.password, true
}

func (c ConfigFileCredentials) credentialsMarker() {}

// SessionCredentials holds an in-memory, unpersisted username/password
// entered for the current run only (e.g. typed into an interactive prompt).
type SessionCredentials struct {
	username string
	password string
}

func NewSessionCredentials(username, password string) SessionCredentials {
	return SessionCredentials{username: username, password: password}
}

func (s SessionCredentials) Username() string          { return s.username }
func (s SessionCredentials) Password() (string, error) { return s.password, nil }

func (s SessionCredentials) Get() (string, string, bool) {
	if s.username == "" || s.password == "" {
		return "", "", false
	}
	return s.username, s.password, true
}

func (s SessionCredentials) credentialsMarker() {}

// InvalidCredentials is the zero-value variant: a username may be known
// (e.g. from a previous failed login) but there is no usable password.
type InvalidCredentials struct {
	username string
}

func NewInvalidCredentials(username string) InvalidCredentials {
	return InvalidCredentials{username: username}
}

func (i InvalidCredentials) Username() string          { return i.username }
func (i InvalidCredentials) Password() (string, error) { return "", nil }
func (i InvalidCredentials) Get() (string, string, bool) {
	return "", "", false
}
func (i InvalidCredentials) credentialsMarker() {}
