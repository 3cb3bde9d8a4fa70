package sync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/recall/internal/deck"
	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/profile"
	"github.com/conorfennell/recall/internal/storage"
)

// Syncer reconciles deck sources with the learner's items.
type Syncer struct {
	DB       *storage.DB
	Store    *profile.Store
	ReposDir string
	Progress io.Writer // git progress output; nil discards it
	Now      func() time.Time
}

// Report summarizes one reconciliation of a source.
type Report struct {
	SourceID int64
	Path     string
	Parsed   int
	Added    int
	Orphaned int
	// KeptOrphans is set when a file failed to parse. Its cards cannot be
	// told apart from removed ones, so nothing was deleted.
	KeptOrphans bool
	Errors      []error
}

// RunSync iterates over all sources and reconciles them.
func (s *Syncer) RunSync(ctx context.Context) ([]Report, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := s.DB.GetAllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return nil, nil
	}

	if err := os.MkdirAll(s.ReposDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}

	var reports []Report
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir := source.Path
		if source.Type == storage.SourceGit {
			localRepoPath, err := gitsource.LocalPath(s.ReposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, localRepoPath, s.Progress); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			dir = localRepoPath
		}

		report, err := s.reconcile(ctx, source.ID, dir)
		if err != nil {
			slog.Error("Error reconciling source", "id", source.ID, "path", dir, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	slog.Info("Sync process complete.")
	return reports, nil
}

// ImportFile adds the cards of a single markdown file as manual items.
func (s *Syncer) ImportFile(ctx context.Context, path string) (int, error) {
	drafts, err := parser.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	items := make([]domain.ReviewItem, 0, len(drafts))
	for _, d := range drafts {
		item, err := deck.Imported(d, 0, s.now())
		if err != nil {
			slog.Warn("Skipping invalid card", "path", path, "front", d.Front, "error", err)
			continue
		}
		items = append(items, item)
	}
	before := len(s.Store.Snapshot())
	if err := s.Store.Dispatch(ctx, profile.AddItems{Items: items}); err != nil {
		return 0, err
	}
	return len(s.Store.Snapshot()) - before, nil
}

func (s *Syncer) reconcile(ctx context.Context, sourceID int64, dir string) (Report, error) {
	report := Report{SourceID: sourceID, Path: dir}
	var items []domain.ReviewItem
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		drafts, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
			report.KeptOrphans = true
		}
		for _, draft := range drafts {
			item, err := deck.Imported(draft, sourceID, s.now())
			if err != nil {
				report.Errors = append(report.Errors, fmt.Errorf("%s: %w", path, err))
				continue
			}
			report.Parsed++
			if found[item.ID] {
				continue
			}
			found[item.ID] = true
			if _, exists := s.Store.Get(item.ID); !exists {
				slog.Info("New item found", "id", item.ID)
				items = append(items, item)
			}
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("walking %s: %w", dir, walkErr)
	}

	if err := s.Store.Dispatch(ctx, profile.AddItems{Items: items}); err != nil {
		return report, err
	}
	report.Added = len(items)

	existing, err := s.DB.GetItemsBySourceID(ctx, sourceID)
	if err != nil {
		return report, err
	}
	for _, item := range existing {
		if report.KeptOrphans {
			slog.Warn("Parse errors in source, keeping unmatched items", "source_id", sourceID)
			break
		}
		if found[item.ID] {
			continue
		}
		slog.Info("Orphaned item, deleting", "id", item.ID)
		if err := s.Store.Dispatch(ctx, profile.DeleteItem{ID: item.ID}); err != nil {
			slog.Warn("Failed to delete orphaned item", "id", item.ID, "error", err)
			continue
		}
		report.Orphaned++
	}

	if err := s.DB.UpdateSourceLastScanned(ctx, sourceID, s.now()); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", dir,
		"parsed_items", report.Parsed,
		"added", report.Added,
		"orphaned_deleted", report.Orphaned,
		"kept_orphans", report.KeptOrphans,
		"errors", len(report.Errors),
	)
	return report, nil
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
