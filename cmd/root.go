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

// Package cmd wires up the executable: cobra command parsing, viper-backed
// config loading, logrus setup, and the task.Tasker lifecycle that starts
// every subsystem (Model, PrefetchCache, ApiWorker, Player, the optional
// mpris adapter, the ui adapter) and tears them down on signal. Ground:
// jellycli's own cmd/root.go (initConfig/initLogging split, cobra root
// command) and cmd/jellycli.go (tasks-list Start/Stop, catchSignals).
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/tvierimaa/panharmonicon/config"
)

// AppName is the on-disk/DBus-facing application identifier. Ground:
// jellycli config.go's own AppName/AppNameLower pair, collapsed to one
// name since Panharmonicon has no mixed-case display requirement.
const AppName = "panharmonicon"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "A terminal client for Pandora internet radio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

// Execute runs the root command; main.go's sole responsibility is calling
// this and translating a returned error into a process exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file")
}

// initConfig points viper at the config file (explicit path or the default
// per-user directory), wires environment variable overrides, and reads
// whatever is already on disk. Ground: jellycli cmd/root.go's initConfig,
// generalized from a Jellyfin-specific config schema to config.Config's
// login/policy/station/volume fields.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir := config.DefaultConfigDir(AppName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cmd: create config dir: %w", err)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName(AppName)
		viper.SetConfigType("yaml")
		cfgFile = path.Join(dir, AppName+".yaml")
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvPrefix(AppName)
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			if err := viper.WriteConfigAs(cfgFile); err != nil {
				return fmt.Errorf("cmd: create config file: %w", err)
			}
		} else {
			return fmt.Errorf("cmd: read config file: %w", err)
		}
	}
	return nil
}

// initLogging configures logrus the way jellycli's cmd/root.go does:
// prefixed, timestamped, colored text output, level taken from config/env
// rather than a flag (matched to config.rs's Player.LogLevel).
func initLogging() {
	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&prefixed.TextFormatter{
		ForceColors:     true,
		ForceFormatting: true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
		QuoteCharacter:  "'",
		Once:            sync.Once{},
	})
	logrus.SetOutput(os.Stderr)
}
