package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trymeuj/aiva/internal/apiclient"
	"github.com/trymeuj/aiva/internal/catalog"
	"github.com/trymeuj/aiva/internal/config"
	"github.com/trymeuj/aiva/internal/executor"
	"github.com/trymeuj/aiva/internal/orchestrator"
	"github.com/trymeuj/aiva/internal/planner"
	"github.com/trymeuj/aiva/internal/provider"
	"github.com/trymeuj/aiva/internal/server"
	"github.com/trymeuj/aiva/internal/state"
	"github.com/trymeuj/aiva/internal/sweeper"
	"github.com/trymeuj/aiva/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get())
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	gen, err := provider.FromConfig(provider.ProviderConfig{
		ID:      "default",
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		API:     cfg.Provider.API,
		Model:   cfg.Provider.Model,
	})
	if err != nil {
		return fmt.Errorf("building provider: %w", err)
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Printf("catalog loaded: %d APIs", cat.Len())

	history, closeHistory := buildHistory(cfg)
	defer closeHistory()

	exec := buildExecutor(cfg, cat)
	agent := orchestrator.New(orchestrator.Deps{
		Generator:     gen,
		Catalog:       cat,
		Planner:       planner.New(gen, cat, planner.Mode(cfg.Planner.Mode)),
		Executor:      exec,
		History:       history,
		HistoryWindow: cfg.History.Window,
	})

	if cfg.Sweeper.Schedule != "" {
		sw, err := sweeper.New(cfg.Sweeper.Schedule, agent.Sessions(), history, cfg.Sweeper.SessionTTL)
		if err != nil {
			return fmt.Errorf("building sweeper: %w", err)
		}
		sw.Start()
		defer sw.Stop()
	}

	srv := server.New(cfg.Server.Listen, agent, cat)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("%s listening on %s", version.Get(), cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Parse(nil)
	}
	return config.Load(path)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	switch cfg.Catalog.Source {
	case "embedded":
		return catalog.Embedded()
	case "file":
		return catalog.LoadFile(cfg.Catalog.Path)
	case "db":
		return catalog.LoadDB(cfg.Catalog.Driver, cfg.Catalog.DSN)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}

func buildHistory(cfg *config.Config) (state.HistoryStore, func()) {
	if cfg.History.Store == "redis" {
		store := state.NewRedisHistory(cfg.History.RedisAddr)
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("closing redis: %v", err)
			}
		}
	}
	return state.NewMemoryHistory(), func() {}
}

func buildExecutor(cfg *config.Config, cat *catalog.Catalog) *executor.Executor {
	var opts []executor.Option
	if cfg.Execution.Mode == "live" && cfg.Execution.BaseURL != "" {
		var clientOpts []apiclient.Option
		if cfg.Execution.Token != "" {
			clientOpts = append(clientOpts, apiclient.WithToken(cfg.Execution.Token))
		}
		opts = append(opts, executor.WithLiveClient(apiclient.New(cfg.Execution.BaseURL, clientOpts...)))
	}
	if cfg.Simulation.ScriptsDir != "" {
		opts = append(opts, executor.WithScriptsDir(cfg.Simulation.ScriptsDir))
	}
	return executor.New(cat, opts...)
}
