package storage

import (
	"os"
	"path/filepath"
)

// Footprint is the on-disk size of the tracker's data files.
type Footprint struct {
	DatabaseBytes int64 `json:"database_bytes"`
	IndexBytes    int64 `json:"index_bytes"`
}

// Total returns the combined size.
func (f Footprint) Total() int64 { return f.DatabaseBytes + f.IndexBytes }

// DataFootprint measures the SQLite database at dbPath, including its WAL and shared-memory
// sidecar files, and the keyword index directory at indexPath.
// Missing paths count as zero.
func DataFootprint(dbPath, indexPath string) (Footprint, error) {
	var fp Footprint
	var err error
	if dbPath != "" {
		fp.DatabaseBytes, err = sizeOf(dbPath, dbPath+"-wal", dbPath+"-shm")
		if err != nil {
			return Footprint{}, err
		}
	}
	fp.IndexBytes, err = sizeOf(indexPath)
	if err != nil {
		return Footprint{}, err
	}
	return fp, nil
}

// sizeOf returns the total size in bytes of the given files or directories.
func sizeOf(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.Walk(p, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				total += fi.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
