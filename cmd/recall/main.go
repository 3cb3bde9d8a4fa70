package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/recall/internal/config"
	"github.com/conorfennell/recall/internal/profile"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/conorfennell/recall/internal/sync"
	"github.com/conorfennell/recall/internal/web"
)

func main() {
	// 1. Define and parse command-line flags
	flags := pflag.NewFlagSet("recall", pflag.ExitOnError)
	config.Flags(flags)
	addSource := flags.String("add-source", "", "Register a deck source: a local directory or a git URL")
	runSync := flags.Bool("sync", false, "Sync all deck sources and exit")
	importFile := flags.String("import", "", "Import the cards of a single markdown file")
	showDue := flags.Bool("due", false, "Print the items due today")
	serve := flags.Bool("serve", false, "Start the web study session")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := cfg.Log.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the database and load the profile
	db, err := storage.Open(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.Info("Database opened", "path", cfg.DB)

	params := cfg.Scheduler
	store, err := profile.Open(ctx, db, profile.WithScheduler(&params), profile.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to load profile: %v", err)
	}

	syncer := &sync.Syncer{DB: db, Store: store, ReposDir: cfg.ReposDir, Progress: os.Stdout}

	// 3. Run the requested command
	switch {
	case *addSource != "":
		err = addNewSource(ctx, db, *addSource)
	case *importFile != "":
		var added int
		if added, err = syncer.ImportFile(ctx, *importFile); err == nil {
			fmt.Printf("Imported %d new items from %s.\n", added, *importFile)
		}
	case *runSync:
		err = printSync(ctx, syncer)
	case *showDue:
		printDue(store)
	case *serve:
		err = serveHTTP(ctx, cfg.Addr, db, store, syncer, logger)
	default:
		flags.Usage()
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func addNewSource(ctx context.Context, db *storage.DB, path string) error {
	existing, err := db.FindSourceByPath(ctx, path)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Printf("Source already registered with id %d.\n", existing.ID)
		return nil
	}
	id, err := db.InsertSource(ctx, path, storage.SourceType(path))
	if err != nil {
		return err
	}
	fmt.Printf("Added %s source %s with id %d. Run --sync to import its cards.\n", storage.SourceType(path), path, id)
	return nil
}

func printSync(ctx context.Context, syncer *sync.Syncer) error {
	reports, err := syncer.RunSync(ctx)
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Printf("%s: %d cards, %d added, %d removed, %d errors.\n", r.Path, r.Parsed, r.Added, r.Orphaned, len(r.Errors))
		for _, e := range r.Errors {
			fmt.Printf("- %s\n", e)
		}
	}
	return nil
}

func printDue(store *profile.Store) {
	due := store.Due(time.Now(), "")
	fmt.Printf("%d items due today.\n", len(due))
	for _, item := range due {
		fmt.Printf("- [%s] %s (every %dd, ease %.2f)\n", item.Category, item.Front, item.Interval, item.EaseFactor)
	}
}

func serveHTTP(ctx context.Context, addr string, db *storage.DB, store *profile.Store, syncer *sync.Syncer, logger *slog.Logger) error {
	handler, err := web.NewServer(db, store, syncer, logger)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
