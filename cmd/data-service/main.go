package main

import (
	"context"
	"fmt"
	"os"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/data-service/pkg/logging"
)

// configFileEnv names the env var holding the YAML config path.
const configFileEnv = "DATA_SERVICE_CONFIG"

const defaultConfigFile = "data-service.yaml"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "data-service: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the YAML config path from the environment.
func configFile() string {
	if path := os.Getenv(configFileEnv); path != "" {
		return path
	}
	return defaultConfigFile
}

// sources chains env vars and the YAML config key for a flag.
func sources(key string, envVars ...string) cli.ValueSourceChain {
	chain := cli.EnvVars(envVars...)
	chain.Chain = append(chain.Chain, yaml.YAML(key, altsrc.StringSourcer(configFile())))
	return chain
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "data-service",
		Usage: "in-memory people/cars/animals data service with ETag caching",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: sources("log.level", "LOG_LEVEL"),
				Value:   string(logging.LevelInfo),
			},
			&cli.BoolFlag{
				Name:    "log-pretty",
				Usage:   "human-readable console logs",
				Sources: sources("log.pretty", "LOG_PRETTY"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.Setup(logging.Config{
				Level:  logging.ParseLogLevel(cmd.String("log-level")),
				Pretty: cmd.Bool("log-pretty"),
				Output: os.Stderr,
			})
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			getCommand(),
			putCommand(),
		},
	}
}
