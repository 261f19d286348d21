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

// Package config holds Panharmonicon's persisted, user-editable settings:
// login credentials, cache policy, the last-tuned station, and volume.
// Ground: jellycli's own config package (viper-backed load/save split,
// masked terminal password entry) generalized from Jellyfin's
// server/token/device-id fields to Panharmonicon's Credentials/CachePolicy/
// station/volume fields (ground: original_source/src/config.rs's Config/
// PartialConfig/Credentials).
package config

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/tvierimaa/panharmonicon/model"
	"github.com/tvierimaa/panharmonicon/models"
)

// AppConfig is the process-wide loaded configuration, set by Load. Ground:
// jellycli config.go's own package-level AppConfig var.
var AppConfig *Config

// credentialsKind is the on-disk tag for which Credentials variant "login"
// holds, ground: config.rs's untagged Credentials enum, made explicit here
// since Go has no serde(untagged) equivalent.
type credentialsKind string

const (
	credKindKeyring    credentialsKind = "keyring"
	credKindConfigFile credentialsKind = "configfile"
	credKindSession    credentialsKind = "session"
	credKindInvalid    credentialsKind = "invalid"
)

// Config is the full set of recognized on-disk settings (spec.md §6's five
// fields: login, policy, station_id, save_station, volume), plus the
// client id jellycli itself persists the same way.
type Config struct {
	loginKind credentialsKind
	username  string
	password  string

	policy       models.CachePolicy
	stationID    string
	hasStation   bool
	saveStation  bool
	volume       float64
	clientID     string

	keyring *secretServiceLookup
	dirty   bool
}

var _ model.ConfigStore = (*Config)(nil)

// Load reads configuration from viper (already configured by cmd with its
// config file path/name/env prefix) into a new Config, applying the same
// defaults original_source/src/config.rs::Config::default uses translated
// to this domain (cache_playing_evict_completed policy, no saved station,
// full volume).
func Load(keyringService string) (*Config, error) {
	c := &Config{
		keyring:     NewSecretServiceLookup(keyringService),
		policy:      models.CachePlayingEvictCompleted,
		saveStation: true,
		volume:      1.0,
	}

	c.loginKind = credentialsKind(viper.GetString("login.kind"))
	c.username = viper.GetString("login.username")
	c.password = viper.GetString("login.password")
	if c.loginKind == "" {
		c.loginKind = credKindInvalid
	}

	if s := viper.GetString("policy"); s != "" {
		c.policy = models.ParseCachePolicy(s)
	}
	if id := viper.GetString("station_id"); id != "" {
		c.stationID, c.hasStation = id, true
	}
	if viper.IsSet("save_station") {
		c.saveStation = viper.GetBool("save_station")
	}
	if viper.IsSet("volume") {
		c.volume = viper.GetFloat64("volume")
	}
	c.clientID = viper.GetString("client_id")
	if c.clientID == "" {
		newID, err := uuid.NewRandom()
		if err != nil {
			return nil, fmt.Errorf("config: generate client id: %w", err)
		}
		c.clientID = newID.String()
		c.dirty = true
	}

	AppConfig = c
	return c, nil
}

// Credentials returns the currently configured login, resolved to one of
// models' four variants. Satisfies model.ConfigStore.
func (c *Config) Credentials() models.Credentials {
	switch c.loginKind {
	case credKindKeyring:
		return models.NewKeyringCredentials(c.username, c.keyring)
	case credKindConfigFile:
		return models.NewConfigFileCredentials(c.username, c.password)
	case credKindSession:
		return models.NewSessionCredentials(c.username, c.password)
	default:
		return models.NewInvalidCredentials(c.username)
	}
}

// SetCredentials replaces the configured login, dirtying the config if the
// resolved (username, password) pair actually changed. Ground:
// config.rs's update_from comparing Credentials by (variant, username,
// password) before marking dirty.
func (c *Config) SetCredentials(cred models.Credentials) {
	kind, username, password := decomposeCredentials(cred)
	if kind == c.loginKind && username == c.username && password == c.password {
		return
	}
	c.loginKind, c.username, c.password = kind, username, password
	c.dirty = true
}

func decomposeCredentials(cred models.Credentials) (credentialsKind, string, string) {
	switch v := cred.(type) {
	case models.KeyringCredentials:
		return credKindKeyring, v.Username(), ""
	case models.ConfigFileCredentials:
		pass, _ := v.Password()
		return credKindConfigFile, v.Username(), pass
	case models.SessionCredentials:
		pass, _ := v.Password()
		return credKindSession, v.Username(), pass
	default:
		return credKindInvalid, cred.Username(), ""
	}
}

// AsKeyringCredentials converts cred to the Keyring variant, writing its
// (username, password) into the Secret Service collection if both are
// known. Ground: config.rs's Credentials::as_keyring.
func (c *Config) AsKeyringCredentials(cred models.Credentials) (models.Credentials, error) {
	if k, ok := cred.(models.KeyringCredentials); ok {
		return k, nil
	}
	username := cred.Username()
	password, _ := cred.Password()
	if username != "" && password != "" {
		if err := c.keyring.Store(username, password); err != nil {
			return nil, fmt.Errorf("config: store credentials in keyring: %w", err)
		}
	}
	return models.NewKeyringCredentials(username, c.keyring), nil
}

// AsConfigFileCredentials converts cred to the ConfigFile variant (username
// and password both held inline, persisted to the config file in plain
// text). Ground: config.rs's Credentials::as_configfile.
func (c *Config) AsConfigFileCredentials(cred models.Credentials) models.Credentials {
	if v, ok := cred.(models.ConfigFileCredentials); ok {
		return v
	}
	password, _ := cred.Password()
	return models.NewConfigFileCredentials(cred.Username(), password)
}

// AsSessionCredentials converts cred to the Session variant (held only in
// memory, never persisted). Ground: config.rs's Credentials::as_session.
func (c *Config) AsSessionCredentials(cred models.Credentials) models.Credentials {
	if v, ok := cred.(models.SessionCredentials); ok {
		return v
	}
	password, _ := cred.Password()
	return models.NewSessionCredentials(cred.Username(), password)
}

// AsInvalidCredentials converts cred to the Invalid variant (username known,
// no usable password). Ground: config.rs's Credentials::as_invalid.
func (c *Config) AsInvalidCredentials(cred models.Credentials) models.Credentials {
	return models.NewInvalidCredentials(cred.Username())
}

// CachePolicy satisfies model.ConfigStore.
func (c *Config) CachePolicy() models.CachePolicy { return c.policy }

// SetCachePolicy updates the cache policy, dirtying the config on change.
func (c *Config) SetCachePolicy(p models.CachePolicy) {
	if p == c.policy {
		return
	}
	c.policy = p
	c.dirty = true
}

// StationID satisfies model.ConfigStore.
func (c *Config) StationID() (string, bool) {
	if !c.saveStation {
		return "", false
	}
	return c.stationID, c.hasStation
}

// SetStationID satisfies model.ConfigStore. Ground: config.rs's
// PartialConfig::new_station/no_station plus update_from's station_id arm.
func (c *Config) SetStationID(id string, ok bool) {
	if c.stationID == id && c.hasStation == ok {
		return
	}
	c.stationID, c.hasStation = id, ok
	c.dirty = true
}

// SaveStation reports whether the tuned station should be remembered
// across restarts.
func (c *Config) SaveStation() bool { return c.saveStation }

// SetSaveStation toggles whether future SetStationID calls are persisted
// across restarts (the station is still tracked in memory for the
// lifetime of the process either way).
func (c *Config) SetSaveStation(save bool) {
	if save == c.saveStation {
		return
	}
	c.saveStation = save
	c.dirty = true
}

// Volume satisfies model.ConfigStore.
func (c *Config) Volume() float64 { return c.volume }

// SetVolume satisfies model.ConfigStore.
func (c *Config) SetVolume(v float64) {
	const epsilon = 1e-6
	if diff := c.volume - v; diff < epsilon && diff > -epsilon {
		return
	}
	c.volume = v
	c.dirty = true
}

// ClientID returns the stable per-install client identifier persisted
// alongside the rest of the configuration. Ground: jellycli config.go's
// GetClientID, generalized from a Jellyfin-specific helper to a plain
// accessor since Panharmonicon always has one by the time Load returns.
func (c *Config) ClientID() string { return c.clientID }

// Flush commits any pending changes to viper's backing file. Ground:
// config.rs's Config::flush (write only if dirty or the file is missing)
// combined with jellycli's SaveConfig/UpdateViper split.
func (c *Config) Flush() error {
	if !c.dirty {
		return nil
	}
	c.updateViper()
	if err := viper.WriteConfig(); err != nil {
		return fmt.Errorf("config: write config file: %w", err)
	}
	c.dirty = false
	return nil
}

func (c *Config) updateViper() {
	viper.Set("login.kind", string(c.loginKind))
	viper.Set("login.username", c.username)
	if c.loginKind == credKindConfigFile || c.loginKind == credKindSession {
		viper.Set("login.password", c.password)
	} else {
		viper.Set("login.password", "")
	}
	viper.Set("policy", c.policy.String())
	if c.hasStation && c.saveStation {
		viper.Set("station_id", c.stationID)
	} else {
		viper.Set("station_id", "")
	}
	viper.Set("save_station", c.saveStation)
	viper.Set("volume", c.volume)
	viper.Set("client_id", c.clientID)
}

// ReadUserInput prompts on stdout and reads one line from stdin, masking
// the input when mask is true. Kept close to verbatim from jellycli's own
// config.ReadUserInput, the same terminal-password-entry idiom used by
// the ui package's login flow.
func ReadUserInput(name string, mask bool) (string, error) {
	fmt.Print("Enter ", name, ": ")
	var val string
	if mask {
		raw, err := terminal.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", fmt.Errorf("failed to read user input: %w", err)
		}
		val = string(raw)
		fmt.Println()
	} else {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read user input: %w", err)
		}
		val = line
	}
	return strings.Trim(val, "\n\r"), nil
}

// DefaultConfigDir returns the per-user directory viper should look for
// panharmonicon.yaml in, ground: jellycli config.go's os.UserCacheDir/
// os.TempDir fallbacks for LocalCacheDir, applied here to the config
// directory instead of the audio cache directory.
func DefaultConfigDir(appName string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		logrus.Warnf("config: could not determine user config dir, falling back to temp dir: %v", err)
		dir = os.TempDir()
	}
	return path.Join(dir, appName)
}
