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
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/homesearch/config"
)

const settingsKey = "settings"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "homesearch",
		Usage: "Hybrid structured and semantic search over real-estate listings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides HOMESEARCH_LOG_LEVEL",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Read settings from this .env file",
				Value: ".env",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "stats",
				Usage:     "Generate column statistics for a dataset",
				ArgsUsage: "<path or s3://bucket/key>",
				Action:    statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Where to write the statistics (defaults to HOMESEARCH_STATS)",
					},
				},
			},
			{
				Name:      "load",
				Usage:     "Load a CSV dataset into the index",
				ArgsUsage: "<path or s3://bucket/key>",
				Action:    loadCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Number of records encoded and stored together",
						Value: 512,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent chunk workers (0 = half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per chunk",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate the dataset without storing it",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search listings with a natural-language query and/or parameters",
				ArgsUsage: "[natural language query]",
				Action:    searchCommand,
				Flags:     searchFlags(),
			},
			{
				Name:      "similar",
				Usage:     "Find listings similar to a stored listing",
				ArgsUsage: "<id>",
				Action:    similarCommand,
				Flags:     searchFlags(),
			},
			{
				Name:   "debug",
				Usage:  "Show the first stored listings",
				Action: debugCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print JSON instead of text",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-encode every stored listing with the current model and statistics",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 256,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "param",
			Aliases: []string{"p"},
			Usage:   "Structured parameter as name=value, e.g. city_filter=oakland or max_price=900k (repeatable)",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of results",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print JSON instead of text",
		},
	}
}

// setup loads the settings and configures the default logger.
func setup(c *cli.Context) error {
	settings, err := config.Load(c.String("env-file"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		if _, err := config.ParseLevel(lvl); err != nil {
			return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", lvl)
		}
		settings.LogLevel = lvl
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: settings.Level(),
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[settingsKey] = settings
	return nil
}

func settingsFrom(c *cli.Context) *config.Settings {
	if s, ok := c.App.Metadata[settingsKey].(*config.Settings); ok {
		return s
	}
	return &config.Settings{}
}
