// Package fs exposes the thirteen POSIX-boundary operations of the
// region filesystem. Each operation re-runs region initialisation (a
// no-op after the first mount), resolves its path, acts through the
// directory and file engines, and maintains timestamps: reads refresh
// atime, writes and structural mutations refresh mtime, creation sets
// all three.
//
// The Filesystem keeps no state outside the region buffer, so a
// Filesystem opened over a byte-for-byte copy of the buffer — or over
// the same backing file mapped at a different address — behaves
// identically.
package fs

import (
	"time"

	"github.com/marmos91/regionfs/pkg/region"
)

// Filesystem is the boundary layer over one region image.
type Filesystem struct {
	r   *region.Region
	now func() time.Time
}

// Option configures a Filesystem.
type Option func(*Filesystem)

// WithClock overrides the time source. Useful for tests that need
// deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Filesystem) { f.now = now }
}

// New opens a filesystem over buf, which must hold at least
// region.MinSize bytes. A fresh (all-zero) buffer is initialised on the
// first operation; an already-initialised image is resumed as-is.
func New(buf []byte, opts ...Option) (*Filesystem, error) {
	r, err := region.Open(buf)
	if err != nil {
		return nil, &Error{Code: ErrInvalid}
	}
	f := &Filesystem{r: r, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// init runs region bootstrap; cheap when the image is already live.
func (f *Filesystem) init() {
	f.r.Init(f.now())
}

// resolve maps a path to its node, or an ErrNotFound.
func (f *Filesystem) resolve(path string) (region.NodeID, error) {
	node := f.r.Lookup(path)
	if node == region.NoNode {
		return region.NoNode, &Error{Code: ErrNotFound, Path: path}
	}
	return node, nil
}

// resolveParent maps a path to its parent directory and leaf name.
func (f *Filesystem) resolveParent(path string) (region.NodeID, string, error) {
	parent, leaf := f.r.LookupParent(path)
	if parent == region.NoNode {
		return region.NoNode, "", &Error{Code: ErrNotFound, Path: path}
	}
	return parent, leaf, nil
}

// touchAtime stamps a node's access time.
func (f *Filesystem) touchAtime(node region.NodeID) {
	ino := f.r.Inode(node)
	ino.Atime = region.ToTimespec(f.now())
	f.r.PutInode(node, ino)
}

// touchMtime stamps a node's modification time.
func (f *Filesystem) touchMtime(node region.NodeID) {
	ino := f.r.Inode(node)
	ino.Mtime = region.ToTimespec(f.now())
	f.r.PutInode(node, ino)
}
