package syncengine

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulschiretz/webdav-uploader/pkg/exclude"
	"github.com/paulschiretz/webdav-uploader/pkg/pathutil"
	"github.com/paulschiretz/webdav-uploader/pkg/plog"
)

// collect walks sourceRoot, pruning excluded directories and skipping
// excluded files, returning every surviving entry's forward-slash relative
// path. Walk errors (permission, stat) are logged and counted but never
// abort the traversal.
func collect(sourceRoot string, excl *exclude.Set, stats *Stats) (files []string, dirs []string) {
	err := filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			plog.Warn("traversal error", "path", path, "error", walkErr)
			stats.addError()
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == sourceRoot {
			return nil
		}

		rel, relErr := filepath.Rel(sourceRoot, path)
		if relErr != nil {
			plog.Warn("could not compute relative path", "path", path, "error", relErr)
			stats.addError()
			return nil
		}
		relSlash := pathutil.PathToGenericUtf8(rel)

		if excl.Matches(relSlash) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			dirs = append(dirs, relSlash)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, relSlash)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		plog.Warn("traversal aborted early", "error", err)
		stats.addError()
	}
	return files, dirs
}

// sortDirsByDepth orders relative directory paths shallowest first, so that
// the directory-ensure phase always creates a parent before its children.
// Ties (equal depth) keep no particular order beyond what sort.Slice gives.
func sortDirsByDepth(dirs []string) []string {
	sorted := make([]string, len(dirs))
	copy(sorted, dirs)
	sort.Slice(sorted, func(i, j int) bool {
		return depthOf(sorted[i]) < depthOf(sorted[j])
	})
	return sorted
}

func depthOf(relPath string) int {
	return strings.Count(relPath, "/")
}
