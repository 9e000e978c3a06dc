package fuse

import (
	"context"
	"syscall"

	regionfs "github.com/marmos91/regionfs/pkg/fs"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// node serves one path of the region filesystem. It carries no state of
// its own beyond the shared Filesystem: the path is recomputed from the
// kernel's inode tree on every call, so renames performed through the
// kernel stay consistent.
type node struct {
	gofuse.Inode
	fsys *regionfs.Filesystem
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeMknoder = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeRenamer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)

// path returns the node's absolute path inside the region filesystem.
func (n *node) path() string {
	return "/" + n.Path(nil)
}

func (n *node) childPath(name string) string {
	p := n.path()
	if p == "/" {
		return "/" + name
	}
	return p + "/" + name
}

// caller extracts the requesting uid/gid, defaulting to 0/0 when the
// kernel supplies none.
func caller(ctx context.Context) (uint32, uint32) {
	if c, ok := fuse.FromContext(ctx); ok {
		return c.Uid, c.Gid
	}
	return 0, 0
}

func fillAttr(attr regionfs.Attr, out *fuse.Attr) {
	out.Mode = attr.Mode
	out.Nlink = attr.Nlink
	out.Size = attr.Size
	out.Owner = fuse.Owner{Uid: attr.UID, Gid: attr.GID}
	atime, mtime, ctime := attr.Atime, attr.Mtime, attr.Ctime
	out.SetTimes(&atime, &mtime, &ctime)
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	uid, gid := caller(ctx)
	attr, err := n.fsys.Getattr(n.path(), uid, gid)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(attr, &out.Attr)
	return 0
}

func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	path := n.path()
	if size, ok := in.GetSize(); ok {
		if err := n.fsys.Truncate(path, int64(size)); err != nil {
			return toErrno(err)
		}
	}
	atime, aok := in.GetATime()
	mtime, mok := in.GetMTime()
	if aok || mok {
		uid, gid := caller(ctx)
		attr, err := n.fsys.Getattr(path, uid, gid)
		if err != nil {
			return toErrno(err)
		}
		if !aok {
			atime = attr.Atime
		}
		if !mok {
			mtime = attr.Mtime
		}
		if err := n.fsys.Utimens(path, atime, mtime); err != nil {
			return toErrno(err)
		}
	}
	return n.Getattr(ctx, f, out)
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	uid, gid := caller(ctx)
	attr, err := n.fsys.Getattr(n.childPath(name), uid, gid)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(attr, &out.Attr)
	child := n.NewInode(ctx, &node{fsys: n.fsys}, gofuse.StableAttr{Mode: attr.Mode & syscall.S_IFMT})
	return child, 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	names, err := n.fsys.Readdir(n.path())
	if err != nil {
		return nil, toErrno(err)
	}
	uid, gid := caller(ctx)
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		mode := uint32(syscall.S_IFREG)
		if attr, err := n.fsys.Getattr(n.childPath(name), uid, gid); err == nil {
			mode = attr.Mode & syscall.S_IFMT
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}
	return gofuse.NewListDirStream(entries), 0
}

func (n *node) Mknod(ctx context.Context, name string, mode, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if err := n.fsys.Mknod(n.childPath(name)); err != nil {
		return nil, toErrno(err)
	}
	return n.Lookup(ctx, name, out)
}

func (n *node) Create(ctx context.Context, name string, flags, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	if err := n.fsys.Mknod(n.childPath(name)); err != nil {
		return nil, nil, 0, toErrno(err)
	}
	child, errno := n.Lookup(ctx, name, out)
	return child, nil, 0, errno
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if err := n.fsys.Mkdir(n.childPath(name)); err != nil {
		return nil, toErrno(err)
	}
	return n.Lookup(ctx, name, out)
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.fsys.Unlink(n.childPath(name)))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.fsys.Rmdir(n.childPath(name)))
}

func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	from := n.childPath(name)
	toDir := "/" + newParent.EmbeddedInode().Path(nil)
	to := toDir + "/" + newName
	if toDir == "/" {
		to = "/" + newName
	}
	return toErrno(n.fsys.Rename(from, to))
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if err := n.fsys.Open(n.path()); err != nil {
		return nil, 0, toErrno(err)
	}
	return nil, 0, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	got, err := n.fsys.Read(n.path(), dest, off)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.fsys.Write(n.path(), data, off)
	if err != nil && written == 0 {
		return 0, toErrno(err)
	}
	// A short write on a full pool still reports the bytes that made it.
	return uint32(written), 0
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	info := n.fsys.Statfs()
	out.Bsize = info.BlockSize
	out.Blocks = info.Blocks
	out.Bfree = info.BlocksFree
	out.Bavail = info.BlocksAvail
	out.NameLen = info.NameMax
	return 0
}
