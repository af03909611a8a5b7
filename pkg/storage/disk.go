// Package storage abstracts where uploaded images and payment proofs live.
//
// Two drivers exist: "local" (default, files under STORAGE_LOCAL_ROOT) and
// "s3" (AWS S3 or any S3-compatible endpoint such as MinIO or R2).
//
//	storage.Connect()
//	err := storage.Default().Put(ctx, "media/photo/helmets/a.jpg", r, "image/jpeg")
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/usgears/storefront/config"
	"github.com/usgears/storefront/pkg/logger"
)

// ErrNotExist is wrapped by Open and Stat when the object is missing.
var ErrNotExist = fs.ErrNotExist

// Disk is a flat key/value file store. Paths always use forward slashes.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	// Delete returns nil when the object is already gone.
	Delete(ctx context.Context, path string) error
	// Files lists every object under dir, recursively.
	Files(ctx context.Context, dir string) ([]string, error)
	URL(path string) string
}

var (
	mu          sync.RWMutex
	disks       = map[string]Disk{}
	defaultName = "local"
)

// Connect registers the local disk and, when S3_BUCKET is set, the s3 disk.
// A misconfigured s3 disk is logged and skipped; falling back to local keeps
// checkout working.
func Connect() {
	mu.Lock()
	defer mu.Unlock()

	disks["local"] = NewLocal(config.StorageLocalRoot(), config.StorageURL())
	defaultName = config.StorageDefault()

	if config.StorageS3Bucket() != "" {
		d, err := newS3Disk(context.Background())
		if err != nil {
			logger.Warn("storage: s3 disk disabled", "error", err)
		} else {
			disks["s3"] = d
		}
	}

	if _, ok := disks[defaultName]; !ok {
		logger.Warn("storage: default disk not available, using local", "disk", defaultName)
		defaultName = "local"
	}
}

// Use returns a named disk.
func Use(name string) (Disk, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the STORAGE_DISK disk. It panics before Connect.
func Default() Disk {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := disks[defaultName]
	if !ok {
		panic("storage: Connect has not been called")
	}
	return d
}

// IsNotExist reports whether err means the object is missing.
func IsNotExist(err error) bool { return errors.Is(err, ErrNotExist) }
