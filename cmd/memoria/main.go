package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/conorfennell/memoria/internal/config"
	"github.com/conorfennell/memoria/internal/importer"
	"github.com/conorfennell/memoria/internal/notes"
	"github.com/conorfennell/memoria/internal/storage"
	cardsync "github.com/conorfennell/memoria/internal/sync"
	"github.com/conorfennell/memoria/internal/web"
)

func main() {
	f := config.Flags("memoria")
	addSource := f.String("add-source", "", "Register a notes source (local path or git URL) and exit")
	runSync := f.Bool("sync", false, "Import all registered sources and exit")
	f.Parse(os.Args[1:])

	cfg := config.MustLoad(f)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB)

	syncer := cardsync.New(db)
	noteSvc := notes.NewService(db, syncer)
	imp := importer.New(db, syncer, cfg.Repos)

	if *addSource != "" {
		if _, err := imp.AddSource(*addSource); err != nil {
			slog.Error("failed to add source", "path", *addSource, "error", err)
			os.Exit(1)
		}
		return
	}

	if *runSync {
		if err := imp.Run(); err != nil {
			slog.Error("sync failed", "error", err)
			os.Exit(1)
		}
		return
	}

	server := web.NewServer(db, noteSvc, imp, cfg.Debounce)
	slog.Info("serving web UI", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, server); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
