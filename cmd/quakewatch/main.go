package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/quakewatch/quakewatch/internal/api"
	"github.com/quakewatch/quakewatch/internal/dashboard"
	"github.com/quakewatch/quakewatch/internal/feed"
	"github.com/quakewatch/quakewatch/internal/maprender"
	"github.com/quakewatch/quakewatch/internal/store"
)

var cli struct {
	Listen    string `default:":8080" env:"QUAKEWATCH_LISTEN" help:"HTTP listen address."`
	DB        string `default:"data/quakewatch.db" env:"QUAKEWATCH_DB" help:"Path to the sqlite fetch journal."`
	NoJournal bool   `env:"QUAKEWATCH_NO_JOURNAL" help:"Disable the sqlite fetch journal."`
	NoProbe   bool   `env:"QUAKEWATCH_NO_PROBE" help:"Skip the tile-source probe and treat the map as ready."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("quakewatch"),
		kong.Description("Earthquake dashboard over the USGS all-day feed."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	var journal *store.Journal
	if !cli.NoJournal {
		if err := os.MkdirAll(filepath.Dir(cli.DB), 0o755); err != nil {
			log.Fatalf("create data directory: %v", err)
		}
		db, err := sql.Open("sqlite", cli.DB)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()

		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")

		journal = store.New(db)
		if err := journal.Migrate(); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("fetch journal ready")
	}

	client := feed.NewClient()
	layer := maprender.NewLayer(cli.NoProbe)
	state := dashboard.New(client, layer, journal)
	server := api.NewServer(state, layer, journal, cli.Listen)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cli.NoProbe {
		go func() {
			if err := layer.Probe(ctx); err != nil {
				log.Printf("tile probe failed, map panel degraded: %v", err)
				return
			}
			log.Println("tile source reachable, map ready")
			state.Reconcile()
		}()
	}

	// Initial load; failures surface on the dashboard, not as a crash.
	go func() {
		loadCtx, loadCancel := context.WithTimeout(ctx, time.Minute)
		defer loadCancel()
		if err := state.Refresh(loadCtx); err != nil {
			log.Printf("initial fetch: %v", err)
		}
	}()

	log.Printf("starting server on %s", cli.Listen)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
