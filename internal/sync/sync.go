// Package sync reconciles deck sources into the database. Questions keep
// their id (and with it their review state) across re-parses; questions that
// disappear from their source are pruned together with their history.
package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/studylog/fukushu/internal/domain"
	"github.com/studylog/fukushu/internal/gitsource"
	"github.com/studylog/fukushu/internal/parser"
	"github.com/studylog/fukushu/internal/storage"
)

// deckExt is the file extension scanned for inside a source directory.
const deckExt = ".deck"

// IsGitURL reports whether a source path looks like a git repository rather
// than a local directory.
func IsGitURL(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}

// Run iterates over all registered sources and reconciles each one.
func Run(ctx context.Context, db *storage.DB, reposDir string) error {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("no sources configured")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		localPath := source.Path
		if source.Type == "git" {
			localPath, err = gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("error determining local path for deck repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localPath); err != nil {
				slog.Error("error syncing deck repo", "url", source.Path, "error", err)
				continue
			}
		}

		if err := reconcileLocalSource(ctx, db, source.ID, localPath); err != nil {
			slog.Error("error reconciling source", "path", localPath, "error", err)
			continue
		}
		if err := db.UpdateSourceLastScanned(ctx, source.ID); err != nil {
			slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
		}
	}
	slog.Info("sync complete")
	return nil
}

func reconcileLocalSource(ctx context.Context, db *storage.DB, sourceID int64, root string) error {
	var subjects []domain.Subject
	var parseErrors []error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), deckExt) {
			return nil
		}
		fileSubjects, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		subjects = append(subjects, fileSubjects...)
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", root, walkErr)
	}

	found := make(map[string]bool)
	inserted, updated := 0, 0
	for si, s := range subjects {
		if err := db.UpsertSubject(ctx, s, si); err != nil {
			return err
		}
		for ci, c := range s.Chapters {
			if err := db.UpsertChapter(ctx, s.ID, c, ci); err != nil {
				return err
			}
			for qi, q := range c.Questions {
				found[q.ID] = true
				exists, err := db.HasQuestion(ctx, q.ID)
				if err != nil {
					return err
				}
				if exists {
					if err := db.UpdateQuestionPlacement(ctx, c.ID, q, qi, sourceID); err != nil {
						return err
					}
					updated++
					continue
				}
				if err := db.InsertQuestion(ctx, c.ID, q, qi, sourceID); err != nil {
					return err
				}
				inserted++
			}
		}
	}

	existing, err := db.QuestionIDsBySource(ctx, sourceID)
	if err != nil {
		return err
	}
	orphaned := 0
	for _, id := range existing {
		if found[id] {
			continue
		}
		slog.Info("orphaned question, deleting", "question_id", id)
		if err := db.DeleteQuestion(ctx, id); err != nil {
			slog.Warn("failed to delete orphaned question", "question_id", id, "error", err)
			continue
		}
		orphaned++
	}

	for _, e := range parseErrors {
		slog.Warn("deck parse error", "error", e)
	}
	slog.Info("reconciliation complete",
		"path", root,
		"inserted", inserted,
		"updated", updated,
		"orphaned_deleted", orphaned,
		"errors", len(parseErrors),
	)
	return nil
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
