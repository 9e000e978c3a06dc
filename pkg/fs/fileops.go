package fs

import (
	"errors"

	"github.com/marmos91/regionfs/pkg/region"
)

// Read copies up to len(p) bytes from the file at path, starting at off,
// into p. It returns the number of bytes read; 0 means end-of-file.
// Bytes inside holes read as zeros. Reading a directory fails.
func (f *Filesystem) Read(path string, p []byte, off int64) (int, error) {
	f.init()
	node, err := f.resolve(path)
	if err != nil {
		return 0, err
	}
	if f.r.Inode(node).Mode != region.ModeFile {
		return 0, &Error{Code: ErrIsDir, Path: path}
	}
	if off < 0 {
		return 0, &Error{Code: ErrInvalid, Path: path}
	}
	if len(p) == 0 {
		return 0, nil
	}
	f.touchAtime(node)
	return f.r.ReadAt(node, p, uint64(off)), nil
}

// Write copies p into the file at path starting at off, growing the file
// as needed; a write past the end makes the hole explicit zeros. It
// returns the number of bytes written. When the block pool cannot cover
// the initial growth to the write offset nothing is written and the
// error carries EINVAL; when the pool drains mid-write the short count
// is returned together with an ENOSPC-coded error.
func (f *Filesystem) Write(path string, p []byte, off int64) (int, error) {
	f.init()
	node, err := f.resolve(path)
	if err != nil {
		return 0, err
	}
	if f.r.Inode(node).Mode != region.ModeFile {
		return 0, &Error{Code: ErrIsDir, Path: path}
	}
	if off < 0 {
		return 0, &Error{Code: ErrInvalid, Path: path}
	}
	f.touchMtime(node)
	if len(p) == 0 {
		return 0, nil
	}
	n, err := f.r.WriteAt(node, p, uint64(off))
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, region.ErrNoSpace):
		return n, &Error{Code: ErrNoSpace, Path: path}
	default:
		return n, &Error{Code: ErrInvalid, Path: path}
	}
}

// Truncate resizes the file at path to size bytes, releasing or
// zero-growing blocks as needed. Directories cannot be truncated.
func (f *Filesystem) Truncate(path string, size int64) error {
	f.init()
	node, err := f.resolve(path)
	if err != nil {
		return err
	}
	if f.r.Inode(node).Mode != region.ModeFile {
		return &Error{Code: ErrIsDir, Path: path}
	}
	if size < 0 {
		return &Error{Code: ErrInvalid, Path: path}
	}
	f.touchMtime(node)
	if err := f.r.Resize(node, uint64(size)); err != nil {
		return &Error{Code: ErrNoSpaceTrunc, Path: path}
	}
	return nil
}
