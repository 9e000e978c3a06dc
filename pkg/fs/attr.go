package fs

import (
	"time"

	"github.com/marmos91/regionfs/pkg/region"
)

// Attr is the stat-shaped view of a node.
type Attr struct {
	// UID and GID are echoed from the caller; the filesystem stores no
	// ownership of its own.
	UID uint32
	GID uint32

	// Mode is S_IFDIR|0755 for directories and S_IFREG|0755 for files.
	Mode uint32

	// Nlink is the entry reference count.
	Nlink uint32

	// Size is bytes for files, entries times the entry size for
	// directories.
	Size uint64

	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

const (
	modeDirBits  = 0o040000 | 0o755 // S_IFDIR | 0755
	modeFileBits = 0o100000 | 0o755 // S_IFREG | 0755
)

// Getattr fills an Attr for path. uid and gid come from the calling
// context and are passed straight through.
func (f *Filesystem) Getattr(path string, uid, gid uint32) (Attr, error) {
	f.init()
	node, err := f.resolve(path)
	if err != nil {
		return Attr{}, err
	}
	ino := f.r.Inode(node)
	attr := Attr{
		UID:   uid,
		GID:   gid,
		Nlink: uint32(ino.Nlinks),
		Size:  ino.Size,
		Atime: ino.Atime.Time(),
		Mtime: ino.Mtime.Time(),
		Ctime: ino.Ctime.Time(),
	}
	if ino.Mode == region.ModeDir {
		attr.Mode = modeDirBits
		attr.Size = ino.Size * region.DirentSize
	} else {
		attr.Mode = modeFileBits
	}
	return attr, nil
}

// Utimens sets path's access and modification times.
func (f *Filesystem) Utimens(path string, atime, mtime time.Time) error {
	f.init()
	node, err := f.resolve(path)
	if err != nil {
		return err
	}
	ino := f.r.Inode(node)
	ino.Atime = region.ToTimespec(atime)
	ino.Mtime = region.ToTimespec(mtime)
	f.r.PutInode(node, ino)
	return nil
}

// StatfsInfo carries the statfs fields the filesystem supports.
type StatfsInfo struct {
	BlockSize   uint32 // f_bsize
	Blocks      uint64 // f_blocks: region size in blocks
	BlocksFree  uint64 // f_bfree
	BlocksAvail uint64 // f_bavail, same as f_bfree
	NameMax     uint32 // f_namemax
}

// Statfs reports filesystem capacity and usage.
func (f *Filesystem) Statfs() StatfsInfo {
	f.init()
	free := f.r.FreeBlocks()
	return StatfsInfo{
		BlockSize:   region.BlockSize,
		Blocks:      f.r.Blocks(),
		BlocksFree:  free,
		BlocksAvail: free,
		NameMax:     region.NameLen - 1,
	}
}

// Open checks that path resolves and refreshes its access time. No
// handle state exists; reads and writes address the path directly.
func (f *Filesystem) Open(path string) error {
	f.init()
	node, err := f.resolve(path)
	if err != nil {
		return err
	}
	f.touchAtime(node)
	return nil
}
