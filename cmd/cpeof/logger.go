// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kadirpekel/cpeof/pkg/config"
	"github.com/kadirpekel/cpeof/pkg/logger"
)

// initLogger installs the default logger. Empty values fall back to info,
// stderr and the simple format.
func initLogger(level, file, format string) (func(), error) {
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if format == "" {
		format = logger.FormatSimple
	}

	var out io.Writer = os.Stderr
	cleanup := func() {}
	if file != "" {
		f, closeFn, err := logger.OpenLogFile(file)
		if err != nil {
			return nil, err
		}
		out, cleanup = f, closeFn
	}

	logger.Init(lvl, out, format)
	return cleanup, nil
}

// applyLoggerConfig re-initializes logging from a config file unless the
// command line already chose the value.
func applyLoggerConfig(cli *CLI, cfg *config.LoggerConfig) (func(), error) {
	level, file, format := cli.LogLevel, cli.LogFile, cli.LogFormat
	if level == "" {
		level = cfg.Level
	}
	if file == "" {
		file = cfg.File
	}
	if format == "" {
		format = cfg.Format
	}
	if level == cli.LogLevel && file == cli.LogFile && format == cli.LogFormat {
		return func() {}, nil
	}
	cleanup, err := initLogger(level, file, format)
	if err != nil {
		return nil, err
	}
	slog.Debug("Logger configured from file", "level", level, "format", format)
	return cleanup, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
