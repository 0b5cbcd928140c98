package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/studylog/fukushu/internal/config"
	"github.com/studylog/fukushu/internal/storage"
	syncer "github.com/studylog/fukushu/internal/sync"
	"github.com/studylog/fukushu/internal/web"
)

func main() {
	flags := pflag.NewFlagSet("fukushu", pflag.ExitOnError)
	configPath := flags.String("config", "fukushu.yaml", "Path to the YAML config file")
	flags.String("listen", ":8977", "HTTP listen address")
	flags.String("db", "fukushu.db", "Path to the SQLite database file")
	flags.String("repos_dir", "repos", "Directory where git deck sources are cloned")
	flags.Int("stagnation_days", 30, "Days without an answer before an ambiguous question counts as stagnant")
	addSource := flags.String("add-source", "", "Register a deck source (local directory or git URL) and sync")
	syncOnly := flags.Bool("sync-only", false, "Sync all sources and exit without serving")
	if err := flags.Parse(os.Args[1:]); err != nil {
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	loc := time.Local
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			slog.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
			os.Exit(1)
		}
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	ctx := context.Background()

	if *addSource != "" {
		if err := registerSource(ctx, db, *addSource); err != nil {
			slog.Error("failed to register source", "path", *addSource, "error", err)
			os.Exit(1)
		}
	}

	if err := syncer.Run(ctx, db, cfg.ReposDir); err != nil {
		slog.Error("initial sync failed", "error", err)
		os.Exit(1)
	}
	if *syncOnly {
		return
	}

	srv := web.NewServer(db, cfg.ReposDir, cfg.StagnationDays, loc)
	slog.Info("listening", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, srv); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// registerSource stores a new deck source, normalizing local paths to absolute
// form so re-registration of the same directory is detected.
func registerSource(ctx context.Context, db *storage.DB, path string) error {
	sourceType := "local"
	if syncer.IsGitURL(path) {
		sourceType = "git"
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = abs
	}

	existing, err := db.FindSourceByPath(ctx, path)
	if err != nil {
		return err
	}
	if existing != nil {
		slog.Info("source already registered", "path", path)
		return nil
	}

	id, err := db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return err
	}
	slog.Info("source registered", "id", id, "type", sourceType, "path", path)
	return nil
}
