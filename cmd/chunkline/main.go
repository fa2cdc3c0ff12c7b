// Copyright 2025 Poiesic Systems
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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/chunkline/enrich"
	"github.com/poiesic/chunkline/pipeline"
	"github.com/poiesic/chunkline/sink"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().RunContext(ctx, os.Args)
	stop()
	if err != nil {
		code := exitFailure
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "error:", msg)
		}
		os.Exit(code)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "chunkline",
		Usage: "Embed, convert and upload JSONL chunk files for vector ingestion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				EnvVars: []string{"CHUNKLINE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file (default ./chunkline.toml if present)",
				EnvVars: []string{"CHUNKLINE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file to load before reading environment variables",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored summaries",
			},
		},
		Before:         before,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "embed",
				Usage:     "Add embeddings to records that lack one",
				ArgsUsage: "<file.jsonl|dir>",
				Action:    stageAction,
				Flags:     append(embeddingFlags(), fileFlags()...),
			},
			{
				Name:      "convert",
				Usage:     "Project embedded records into the ingestion format",
				ArgsUsage: "<file_embeddings.jsonl|dir>",
				Action:    stageAction,
				Flags:     append(fileFlags(), namespaceFlag()),
			},
			{
				Name:      "prepare",
				Usage:     "Embed and project records in a single pass",
				ArgsUsage: "<file.jsonl|dir>",
				Action:    stageAction,
				Flags:     append(append(embeddingFlags(), fileFlags()...), namespaceFlag()),
			},
			{
				Name:      "upload",
				Usage:     "Upload projected records to the ingestion endpoint",
				ArgsUsage: "<file_qdrant.jsonl|dir>",
				Action:    uploadAction,
				Flags:     uploadFlags(),
			},
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service base URL",
			Value:   "https://api.openai.com/v1",
			EnvVars: []string{"CHUNKLINE_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Aliases: []string{"m"},
			Usage:   "Embedding model name",
			Value:   "text-embedding-3-small",
			EnvVars: []string{"CHUNKLINE_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Expected embedding length (0 disables the check)",
		},
		&cli.DurationFlag{
			Name:  "delay",
			Usage: "Minimum delay between embedding requests",
			Value: enrich.DefaultDelay,
		},
		&cli.StringFlag{
			Name:    "cache-dir",
			Usage:   "Directory of the persistent embedding cache (disabled when empty)",
			EnvVars: []string{"CHUNKLINE_CACHE_DIR"},
		},
	}
}

func fileFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Files processed at once for directory inputs (0 uses half the CPUs)",
		},
		&cli.BoolFlag{
			Name:  "sync",
			Usage: "Fsync the output file after every line",
		},
		&cli.IntFlag{
			Name:  "progress-interval",
			Usage: "Report progress every N records",
			Value: pipeline.DefaultProgressInterval,
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Disable the progress line",
		},
	}
}

func namespaceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "namespace",
		Aliases: []string{"n"},
		Usage:   "Record id prefix (derived from the output file name when empty)",
	}
}

func uploadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "Ingestion endpoint URL",
			Value:   sink.DefaultEndpoint,
			EnvVars: []string{"CHUNKLINE_UPLOAD_ENDPOINT"},
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Upload request timeout",
			Value: sink.DefaultTimeout,
		},
	}
}

func before(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	return loadEnv(c.String("env-file"))
}

// setupLogger configures the global slog logger based on the log-level flag.
// Logs go to stderr so that summaries on stdout stay clean.
func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))
	var level slog.Level

	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// loadEnv loads a dotenv file without overriding variables already set.
// A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Debug("loaded environment file", "path", path)
	return nil
}

// inputArg returns the single positional argument and whether it names a
// directory.
func inputArg(c *cli.Context) (string, bool, error) {
	usage := fmt.Sprintf("usage: %s %s %s", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	if c.NArg() != 1 {
		return "", false, cli.Exit(usage, exitUsage)
	}
	input := c.Args().First()
	info, err := os.Stat(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, cli.Exit(fmt.Sprintf("input not found: %s\n%s", input, usage), exitUsage)
		}
		return "", false, err
	}
	return input, info.IsDir(), nil
}

// The setting helpers resolve a value by precedence: an explicit flag or
// environment variable, then the configuration file, then the flag default.

func stringSetting(c *cli.Context, name, fromFile string) string {
	if !c.IsSet(name) && fromFile != "" {
		return fromFile
	}
	return c.String(name)
}

func intSetting(c *cli.Context, name string, fromFile int) int {
	if !c.IsSet(name) && fromFile != 0 {
		return fromFile
	}
	return c.Int(name)
}

func boolSetting(c *cli.Context, name string, fromFile bool) bool {
	if !c.IsSet(name) {
		return fromFile || c.Bool(name)
	}
	return c.Bool(name)
}

// durationSetting takes the raw configuration string so that an explicit
// "0s" in the file overrides a non-zero flag default.
func durationSetting(c *cli.Context, name, fromFile string) (time.Duration, error) {
	if !c.IsSet(name) && fromFile != "" {
		d, err := time.ParseDuration(fromFile)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return d, nil
	}
	return c.Duration(name), nil
}
