// Command scribe-api serves the transcription HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/scribe/app"
	"github.com/kbukum/scribe/config"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env-file", "", "path to a .env file")
	flag.Parse()

	cfg := &app.Config{}
	cfg.Name = "scribe-api"
	if err := config.Load(cfg.Name, cfg, config.WithConfigFile(*configFile), config.WithEnvFile(*envFile)); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := app.RunAPI(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "scribe-api: %v\n", err)
		os.Exit(1)
	}
}
