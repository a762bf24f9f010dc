// Package syncengine orchestrates one full run: traverse the source tree,
// ensure remote directories exist, then upload or upload-and-delete files
// according to pkg/decision, spreading file work across a bounded worker
// pool.
package syncengine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paulschiretz/webdav-uploader/pkg/config"
	"github.com/paulschiretz/webdav-uploader/pkg/exclude"
	"github.com/paulschiretz/webdav-uploader/pkg/pathutil"
	"github.com/paulschiretz/webdav-uploader/pkg/plog"
	"github.com/paulschiretz/webdav-uploader/pkg/webdavclient"
)

// RunSync executes one synchronization pass and returns the accumulated
// statistics. A non-nil error is only returned for startup failures (base
// URL parsing); per-file problems are folded into the returned Stats
// instead.
func RunSync(ctx context.Context, cfg config.Config) (Stats, error) {
	runStart := time.Now()
	stats := &Stats{}

	rules := exclude.BuildDefaultRules(cfg.ExcludePatterns)
	excl := exclude.NewSet(rules)

	remoteChecks := cfg.AppPassword != ""
	if cfg.DryRun && !remoteChecks {
		plog.Warn("dry run without credentials: remote state will not be checked, all decisions assume nothing exists remotely")
	}

	base, err := webdavclient.ParseBaseUrl(cfg.BaseURL)
	if err != nil {
		plog.Error("invalid base url", "error", err)
		stats.addError()
		return stats.snapshot(), err
	}

	remoteRoot := pathutil.NormalizeRemoteRoot(cfg.RemoteRoot)

	plog.Info("scanning source tree", "source", cfg.Source)
	files, dirs := collect(cfg.Source, excl, stats)
	plog.Info("scan complete", "files", len(files), "dirs", len(dirs))

	if remoteChecks {
		dirClient := webdavclient.New(base, cfg.Email, cfg.AppPassword)
		plog.Info("ensuring remote directories")
		ensureDirectories(ctx, dirClient, remoteRoot, dirs, cfg.DryRun, stats)
	}

	n := clamp(cfg.Threads, 1, max(1, len(files)))
	plog.Info("starting upload workers", "workers", n, "files", len(files))

	wc := workerConfig{
		DryRun:       cfg.DryRun,
		RemoteChecks: remoteChecks,
		CompareMode:  cfg.CompareMode,
		RunStart:     runStart,
	}
	disp := &dispenser{total: len(files)}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		var client *webdavclient.Client
		if remoteChecks {
			client = webdavclient.New(base, cfg.Email, cfg.AppPassword)
		}
		g.Go(func() error {
			runWorker(gctx, client, cfg.Source, remoteRoot, files, disp, wc, stats)
			return nil
		})
	}
	_ = g.Wait()

	final := stats.snapshot()
	plog.Info("sync finished",
		"uploaded", final.FilesUploaded,
		"skipped", final.FilesSkipped,
		"deleted_jpg", final.FilesDeletedJPG,
		"deleted_old", final.FilesDeletedOld,
		"dirs_created", final.DirsCreated,
		"errors", final.Errors,
	)
	return final, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
