package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// walSuffixes are the files SQLite keeps beside a database in WAL mode.
var walSuffixes = []string{"", "-wal", "-shm"}

// ArchiveSizeBytes returns the on-disk size of the archive at dbPath, including its WAL
// files. An empty path or a missing archive has size 0.
func ArchiveSizeBytes(dbPath string) (int64, error) {
	if dbPath == "" {
		return 0, nil
	}
	paths := make([]string, len(walSuffixes))
	for i, suffix := range walSuffixes {
		paths[i] = dbPath + suffix
	}
	return DiskUsageBytes(paths...)
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths contribute 0; other errors are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
