// Package preflight runs a small set of filesystem checks before a sync
// starts, producing friendlier errors than a bare stat failure bubbling out
// of the directory walk.
package preflight

import (
	"fmt"
	"os"
)

// CheckSourceAccessible validates that the source path exists and is a
// directory.
func CheckSourceAccessible(sourcePath string) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source directory %s does not exist", sourcePath)
		}
		return fmt.Errorf("cannot stat source directory %s: %w", sourcePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", sourcePath)
	}
	return nil
}
