package fs

import (
	"errors"

	"github.com/marmos91/regionfs/pkg/region"
)

// Readdir lists the names in the directory at path, in storage order.
// "." and ".." are never stored and never reported. An empty directory
// yields a nil slice. The returned names are copies; nothing references
// the region after return.
func (f *Filesystem) Readdir(path string) ([]string, error) {
	f.init()
	node, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	if f.r.Inode(node).Mode != region.ModeDir {
		return nil, &Error{Code: ErrNotDir, Path: path}
	}
	f.touchAtime(node)
	if f.r.Inode(node).Size == 0 {
		return nil, nil
	}
	return f.r.DirEntries(node), nil
}

// Mkdir creates an empty directory at path.
func (f *Filesystem) Mkdir(path string) error {
	return f.create(path, region.ModeDir)
}

// Mknod creates an empty regular file at path.
func (f *Filesystem) Mknod(path string) error {
	return f.create(path, region.ModeFile)
}

// create claims a free inode slot, links it under the parent, then
// stamps its kind and creation times. The slot is claimed only by the
// successful insert, so a failed insert leaks nothing.
func (f *Filesystem) create(path string, mode uint64) error {
	f.init()
	parent, leaf, err := f.resolveParent(path)
	if err != nil {
		return err
	}
	node := f.r.NewNode()
	if node == region.NoNode {
		return &Error{Code: ErrNoSpace, Path: path}
	}
	if err := f.r.DirInsert(parent, leaf, node); err != nil {
		return insertError(err, path)
	}
	ino := f.r.Inode(node)
	ino.Mode = mode
	now := region.ToTimespec(f.now())
	ino.Atime = now
	ino.Mtime = now
	ino.Ctime = now
	f.r.PutInode(node, ino)
	return nil
}

// insertError maps a directory-insert failure onto the boundary codes.
func insertError(err error, path string) error {
	switch {
	case errors.Is(err, region.ErrNoSpace):
		return &Error{Code: ErrNoSpace, Path: path}
	default:
		return &Error{Code: ErrExists, Path: path}
	}
}

// Unlink removes the entry at path. When the entry was the node's last
// link its data blocks are released back to the pool. Removing a
// non-empty directory fails.
func (f *Filesystem) Unlink(path string) error {
	return f.removeEntry(path)
}

// Rmdir removes the empty directory at path.
func (f *Filesystem) Rmdir(path string) error {
	return f.removeEntry(path)
}

func (f *Filesystem) removeEntry(path string) error {
	f.init()
	parent, leaf, err := f.resolveParent(path)
	if err != nil {
		return err
	}
	node, err := f.r.DirRemove(parent, leaf)
	if err != nil {
		switch {
		case errors.Is(err, region.ErrNotFound):
			return &Error{Code: ErrNotFound, Path: path}
		default:
			// Busy directory, empty leaf, or an invalid parent all
			// surface as "exists" at this boundary.
			return &Error{Code: ErrExists, Path: path}
		}
	}
	if ino := f.r.Inode(node); ino.Nlinks == 0 {
		// Last link gone: release the data and scrub the record so the
		// slot returns to its pristine free state.
		if ino.Mode == region.ModeFile {
			if err := f.r.Resize(node, 0); err != nil {
				return &Error{Code: ErrFault, Path: path}
			}
		}
		f.r.ClearNode(node)
	}
	return nil
}

// Rename moves the entry at from to the path to. Within one parent the
// entry is renamed in place; across parents it is inserted at the new
// name and then removed from the old one, and a failing removal rolls
// the insert back. Renaming a path onto itself is a no-op; renaming onto
// an existing name fails.
func (f *Filesystem) Rename(from, to string) error {
	f.init()
	pfrom, ffrom, err := f.resolveParent(from)
	if err != nil {
		return err
	}
	pto, fto, err := f.resolveParent(to)
	if err != nil {
		return err
	}
	node := f.r.DirLookup(pfrom, ffrom)
	if node == region.NoNode {
		return &Error{Code: ErrNotFound, Path: from}
	}
	f.touchMtime(node)

	if pfrom == pto {
		if _, err := f.r.DirRename(pfrom, ffrom, fto); err != nil {
			if errors.Is(err, region.ErrNotFound) {
				return &Error{Code: ErrNotFound, Path: from}
			}
			return &Error{Code: ErrExists, Path: to}
		}
		return nil
	}

	// A non-empty directory can never be removed from its old parent, so
	// the insert-then-remove sequence would be un-rollbackable; refuse it
	// up front with the region untouched.
	if ino := f.r.Inode(node); ino.Mode == region.ModeDir && ino.Size > 0 {
		return &Error{Code: ErrAccess, Path: from}
	}

	if err := f.r.DirInsert(pto, fto, node); err != nil {
		return insertError(err, to)
	}
	if _, err := f.r.DirRemove(pfrom, ffrom); err != nil {
		// Roll the insert back so the entry is not duplicated.
		_, _ = f.r.DirRemove(pto, fto)
		return &Error{Code: ErrAccess, Path: from}
	}
	return nil
}
