package region

// Inode is the decoded form of one inode record. Engines load a record,
// mutate the copy and store it back through PutInode; the copy never
// outlives the call that loaded it.
//
// The same record shape serves files and directories. For files Size is
// in bytes; for directories it is the number of entries. Nblocks counts
// data blocks only — overflow index blocks are owned by the inode but
// accounted separately through the block vector walk.
type Inode struct {
	Mode      uint64
	Nlinks    uint64
	Size      uint64
	Nblocks   uint64
	Blocks    [OffsNode]uint64
	Blocklist uint64
	Atime     Timespec
	Mtime     Timespec
	Ctime     Timespec
}

// nodeOff returns the byte offset of node n's record.
func (r *Region) nodeOff(n NodeID) uint64 {
	return r.u64(hdrNodetbl) + uint64(n)*InodeSize
}

// Inode loads node n's record. The caller is responsible for n being in
// range; engines validate through nodeState first.
func (r *Region) Inode(n NodeID) Inode {
	off := r.nodeOff(n)
	var ino Inode
	ino.Mode = r.u64(off + inoMode)
	ino.Nlinks = r.u64(off + inoNlinks)
	ino.Size = r.u64(off + inoSize)
	ino.Nblocks = r.u64(off + inoNblocks)
	for i := range ino.Blocks {
		ino.Blocks[i] = r.u64(off + inoBlocks + uint64(i)*8)
	}
	ino.Blocklist = r.u64(off + inoBlocklist)
	ino.Atime = Timespec{Sec: int64(r.u64(off + inoAtime)), Nsec: int64(r.u64(off + inoAtime + 8))}
	ino.Mtime = Timespec{Sec: int64(r.u64(off + inoMtime)), Nsec: int64(r.u64(off + inoMtime + 8))}
	ino.Ctime = Timespec{Sec: int64(r.u64(off + inoCtime)), Nsec: int64(r.u64(off + inoCtime + 8))}
	return ino
}

// PutInode stores node n's record.
func (r *Region) PutInode(n NodeID, ino Inode) {
	off := r.nodeOff(n)
	r.putU64(off+inoMode, ino.Mode)
	r.putU64(off+inoNlinks, ino.Nlinks)
	r.putU64(off+inoSize, ino.Size)
	r.putU64(off+inoNblocks, ino.Nblocks)
	for i := range ino.Blocks {
		r.putU64(off+inoBlocks+uint64(i)*8, ino.Blocks[i])
	}
	r.putU64(off+inoBlocklist, ino.Blocklist)
	r.putU64(off+inoAtime, uint64(ino.Atime.Sec))
	r.putU64(off+inoAtime+8, uint64(ino.Atime.Nsec))
	r.putU64(off+inoMtime, uint64(ino.Mtime.Sec))
	r.putU64(off+inoMtime+8, uint64(ino.Mtime.Nsec))
	r.putU64(off+inoCtime, uint64(ino.Ctime.Sec))
	r.putU64(off+inoCtime+8, uint64(ino.Ctime.Nsec))
}

// NewNode returns the first free inode slot, or NoNode when the table is
// exhausted. A slot is free when nothing links to it and it owns no
// blocks; the caller claims it by inserting it into a directory and
// setting its mode. Slot 0 (the root directory) is never handed out.
func (r *Region) NewNode() NodeID {
	max := NodeID(r.MaxNodes())
	for n := NodeID(1); n < max; n++ {
		off := r.nodeOff(n)
		if r.u64(off+inoNlinks) == 0 && r.u64(off+inoBlocks) == NullOff {
			return n
		}
	}
	return NoNode
}

// ClearNode resets a slot to its pristine free state: zero fields, every
// block reference broken. The caller must have released the node's data
// blocks first (a cleared record drops the references).
func (r *Region) ClearNode(n NodeID) {
	var blank Inode
	for i := range blank.Blocks {
		blank.Blocks[i] = NullOff
	}
	blank.Blocklist = NullOff
	r.PutInode(n, blank)
}

// nodeState classifies a node index for the engines.
type nodeState int

const (
	nodeBad    nodeState = iota // out of table range
	nodeFree                    // in range, unlinked or modeless
	nodeLinked                  // live file or directory
)

func (r *Region) nodeState(n NodeID) nodeState {
	if n < 0 || uint64(n) >= r.MaxNodes() {
		return nodeBad
	}
	off := r.nodeOff(n)
	mode := r.u64(off + inoMode)
	if r.u64(off+inoNlinks) == 0 || (mode != ModeDir && mode != ModeFile) {
		return nodeFree
	}
	return nodeLinked
}
