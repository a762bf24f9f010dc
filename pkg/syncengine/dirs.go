package syncengine

import (
	"context"
	"strings"

	"github.com/paulschiretz/webdav-uploader/pkg/pathutil"
	"github.com/paulschiretz/webdav-uploader/pkg/plog"
	"github.com/paulschiretz/webdav-uploader/pkg/webdavclient"
)

// ensureDirectories creates the remote root and every collected local
// directory, shallowest first, so a parent always exists before its
// children are addressed. Known prefixes are cached so a directory shared
// by many files is only ensured once. Failures are logged and counted but
// never abort the phase; a missing directory only risks later upload
// failures, which are themselves logged and counted independently.
func ensureDirectories(ctx context.Context, client *webdavclient.Client, remoteRoot string, dirs []string, dryRun bool, stats *Stats) {
	known := make(map[string]bool)

	ensurePath(ctx, client, remoteRoot, known, dryRun, stats)

	for _, d := range sortDirsByDepth(dirs) {
		if ctx.Err() != nil {
			return
		}
		ensurePath(ctx, client, pathutil.JoinRemotePath(remoteRoot, d), known, dryRun, stats)
	}
}

// ensurePath walks every cumulative prefix of path (split on "/") and
// ensures each one exists remotely, skipping prefixes already recorded in
// known.
func ensurePath(ctx context.Context, client *webdavclient.Client, path string, known map[string]bool, dryRun bool, stats *Stats) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		ensureOne(ctx, client, "/", known, dryRun, stats)
		return
	}
	segments := strings.Split(trimmed, "/")
	prefix := ""
	for _, seg := range segments {
		if ctx.Err() != nil {
			return
		}
		prefix += "/" + seg
		ensureOne(ctx, client, prefix, known, dryRun, stats)
	}
}

func ensureOne(ctx context.Context, client *webdavclient.Client, prefix string, known map[string]bool, dryRun bool, stats *Stats) {
	if known[prefix] {
		return
	}

	if dryRun {
		info, err := client.GetInfo(ctx, prefix)
		if err != nil {
			plog.Warn("directory check failed", "path", prefix, "error", err)
			stats.addError()
			return
		}
		if !info.Exists {
			plog.Info("[DRY RUN] would create directory", "path", prefix)
			stats.addDirCreated()
		}
		known[prefix] = true
		return
	}

	ok, created, err := client.MkCol(ctx, prefix)
	if err != nil {
		plog.Warn("directory creation failed", "path", prefix, "error", err)
		stats.addError()
		return
	}
	if !ok {
		stats.addError()
		return
	}
	if created {
		plog.Info("created remote directory", "path", prefix)
		stats.addDirCreated()
	}
	known[prefix] = true
}
