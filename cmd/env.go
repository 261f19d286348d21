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
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "list-env",
	Short: "List env variables",
	Long: `Any configuration variable can be set with environment variables, so
Panharmonicon can run without a persisted config file (e.g. under Docker). A
config file is still created on first run regardless.

# Config overrides
PANHARMONICON_LOGIN_KIND
PANHARMONICON_LOGIN_USERNAME
PANHARMONICON_LOGIN_PASSWORD
PANHARMONICON_POLICY
PANHARMONICON_STATION_ID
PANHARMONICON_SAVE_STATION
PANHARMONICON_VOLUME
PANHARMONICON_LOG_LEVEL
PANHARMONICON_CLIENT_ID
`,
}

func init() {
	rootCmd.AddCommand(envCmd)
}
