package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"calweb/internal/config"
	appLog "calweb/internal/log"
	"calweb/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	demo       bool
}

func main() {
	appLog.Info("calweb starting", "version", "0.1.0-dev")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI flags override the config file.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.demo {
		conf.DemoOnly = true
	}

	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"log_level", conf.LogLevel,
		"session_ttl_minutes", conf.SessionTTLMinutes,
		"purge_cron", conf.PurgeCron,
		"demo_only", conf.DemoOnly,
		"basic_auth", conf.BasicAuth != nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	srv := web.NewServer(conf)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("server exited", err)
		os.Exit(1)
	}

	appLog.Info("calweb exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.demo, "demo", false, "Serve the built-in demo calendars only; ignore client credentials")

	flag.Parse()

	return cfg
}
