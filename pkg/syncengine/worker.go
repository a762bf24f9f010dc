package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paulschiretz/webdav-uploader/pkg/decision"
	"github.com/paulschiretz/webdav-uploader/pkg/pathutil"
	"github.com/paulschiretz/webdav-uploader/pkg/plog"
	"github.com/paulschiretz/webdav-uploader/pkg/webdavclient"
)

// dispenser hands out the next file index atomically across workers.
type dispenser struct {
	next  atomic.Int64
	total int
}

func (d *dispenser) take() (int, bool) {
	i := int(d.next.Add(1)) - 1
	if i >= d.total {
		return 0, false
	}
	return i, true
}

// runWorker drains files from disp until exhausted, evaluating and acting on
// each one. client is nil when remoteChecks is false (dry run without
// credentials); every remote call is then skipped.
func runWorker(ctx context.Context, client *webdavclient.Client, sourceRoot, remoteRoot string, files []string, disp *dispenser, cfg workerConfig, stats *Stats) {
	for {
		if ctx.Err() != nil {
			return
		}
		i, ok := disp.take()
		if !ok {
			return
		}
		processFile(ctx, client, sourceRoot, remoteRoot, files[i], cfg, stats)
	}
}

// workerConfig carries the run-wide settings a worker needs per file,
// independent of which client or stats instance it was given.
type workerConfig struct {
	DryRun       bool
	RemoteChecks bool
	CompareMode  decision.CompareMode
	RunStart     time.Time
}

func processFile(ctx context.Context, client *webdavclient.Client, sourceRoot, remoteRoot, rel string, cfg workerConfig, stats *Stats) {
	absPath := filepath.Join(sourceRoot, filepath.FromSlash(rel))

	info, err := os.Stat(absPath)
	if err != nil {
		plog.Warn("could not read local file facts", "path", rel, "error", err)
		stats.addError()
		return
	}

	local := decision.LocalFileInfo{
		Path:         rel,
		Size:         uint64(info.Size()),
		LastModified: localModTime(info),
		IsJPG:        isJPG(rel),
	}

	remotePath := pathutil.JoinRemotePath(remoteRoot, rel)

	var remote decision.RemoteItemInfo
	if cfg.RemoteChecks {
		remote, err = client.GetInfo(ctx, remotePath)
		if err != nil {
			plog.Warn("remote lookup failed", "path", remotePath, "error", err)
			stats.addError()
			return
		}
		if remote.Exists && remote.IsDir {
			plog.Warn("remote item is a directory where a file was expected", "path", remotePath)
			stats.addError()
			return
		}
	}

	dec := decision.DecideFileAction(local, remote, cfg.CompareMode, cfg.RunStart)

	switch dec.Action {
	case decision.Skip:
		plog.Debug("skipping file", "path", rel, "reason", dec.Reason)
		stats.addSkipped()
		return

	case decision.Upload:
		if cfg.DryRun {
			plog.Info("[DRY RUN] would upload", "path", rel, "reason", dec.Reason)
			stats.addUploaded()
			return
		}
		if err := client.PutFile(ctx, remotePath, absPath); err != nil {
			plog.Warn("upload failed", "path", rel, "error", err)
			stats.addError()
			return
		}
		plog.Info("uploaded", "path", rel, "reason", dec.Reason)
		stats.addUploaded()

	case decision.UploadAndDelete:
		deleteReason := "old"
		if local.IsJPG {
			deleteReason = "jpg"
		}
		if cfg.DryRun {
			plog.Info("[DRY RUN] would upload", "path", rel, "reason", dec.Reason)
			plog.Info("[DRY RUN] would delete local file", "path", rel, "reason", deleteReason)
			stats.addUploaded()
			if deleteReason == "jpg" {
				stats.addDeletedJPG(rel)
			} else {
				stats.addDeletedOld(rel)
			}
			return
		}
		if err := client.PutFile(ctx, remotePath, absPath); err != nil {
			plog.Warn("upload failed", "path", rel, "error", err)
			stats.addError()
			return
		}
		plog.Info("uploaded", "path", rel, "reason", dec.Reason)
		stats.addUploaded()

		if err := os.Remove(absPath); err != nil {
			plog.Warn("local delete failed after upload", "path", rel, "error", err)
			stats.addError()
			return
		}
		plog.Info("deleted local file", "path", rel, "reason", deleteReason)
		if deleteReason == "jpg" {
			stats.addDeletedJPG(rel)
		} else {
			stats.addDeletedOld(rel)
		}
	}
}

// localModTime projects a local file's modification time into the same
// wall-clock domain used for run_start and remote timestamps. On every
// platform Go targets, os.FileInfo.ModTime() already lives in that domain,
// so this is the identity function; it stays named and explicit rather than
// inlined so the domain-alignment invariant is visible and independently
// testable.
func localModTime(info os.FileInfo) time.Time {
	return info.ModTime()
}

func isJPG(relPath string) bool {
	return strings.ToLower(filepath.Ext(relPath)) == ".jpg"
}
