// Package fuse mounts a region filesystem through FUSE. It is a thin
// host adapter: every callback resolves the node's path, delegates to
// the boundary operations in pkg/fs and translates the typed errors to
// errnos. All filesystem state stays inside the region image.
package fuse

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	regionfs "github.com/marmos91/regionfs/pkg/fs"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted. It
	// is created if it does not exist.
	Mountpoint string

	// Filesystem is the region filesystem to serve.
	Filesystem *regionfs.Filesystem

	// FsName is the name reported in the mount table. Empty defaults
	// to "regionfs".
	FsName string

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Debug enables go-fuse request logging.
	Debug bool
}

// Mount mounts the filesystem and returns the running server. The caller
// must call Unmount (or Wait) on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Filesystem == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	if options.FsName == "" {
		options.FsName = "regionfs"
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &node{fsys: options.Filesystem}

	// The region is single-writer; keep the kernel cache short-lived so
	// repeated lookups observe mutations promptly.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:        options.FsName,
			Name:          "regionfs",
			AllowOther:    options.AllowOther,
			Debug:         options.Debug,
			SingleThreaded: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}
	return server, nil
}

// toErrno translates a boundary error into the errno FUSE reports.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var fe *regionfs.Error
	if errors.As(err, &fe) {
		return fe.Errno()
	}
	return syscall.EIO
}
