package region

// Directory engine
// ================
//
// A directory's contents is an array of fixed-size entries stored in the
// same block vector every file uses. Entries are packed from the front:
// the first entry whose node field is NoNode is the terminator, and no
// valid entry ever follows it. A full final block has no terminator — the
// end of the block chain is the boundary.
//
// The engine walks the entry array with its own cursor rather than the
// file position cursor because removal and insertion need the identity of
// the blocks being walked (and of the previous overflow block) to trim or
// extend the vector in place.

// dirent accessors

func (r *Region) deNodeAt(dblk uint64, i int) NodeID {
	return NodeID(r.u64(dblk*BlockSize + uint64(i)*DirentSize + deNode))
}

func (r *Region) deSetNodeAt(dblk uint64, i int, n NodeID) {
	r.putU64(dblk*BlockSize+uint64(i)*DirentSize+deNode, uint64(n))
}

func (r *Region) deNameAt(dblk uint64, i int) string {
	off := dblk*BlockSize + uint64(i)*DirentSize + deName
	raw := r.buf[off : off+NameLen]
	for j, c := range raw {
		if c == 0 {
			return string(raw[:j])
		}
	}
	return string(raw)
}

func (r *Region) deSetNameAt(dblk uint64, i int, name string) {
	off := dblk*BlockSize + uint64(i)*DirentSize + deName
	n := copy(r.buf[off:off+NameLen-1], name)
	r.buf[off+uint64(n)] = 0
}

// entryName truncates a component to the bound stored entries obey, so
// lookups and insertions agree on over-long names.
func entryName(name string) string {
	if len(name) > NameLen-1 {
		return name[:NameLen-1]
	}
	return name
}

// dirCursor tracks a walk over a directory's entry blocks.
type dirCursor struct {
	oblk     uint64 // overflow block being walked, NullOff in direct refs
	prevOblk uint64 // overflow block before oblk, NullOff if none
	blockIdx int    // slot index within direct refs or oblk
	dblk     uint64 // current data block, NullOff past the chain end
	entry    int    // entry index within dblk
}

// entryRef pins one entry slot, with enough context to trim its block.
type entryRef struct {
	dirCursor
	node NodeID
}

// scanResult is everything one pass over a directory yields.
type scanResult struct {
	end      dirCursor // terminator slot, or chain end (dblk == NullOff)
	found    *entryRef // entry matching name, if any
	conflict bool      // an entry matching conflictName exists
	last     *entryRef // last occupied entry seen
}

// scanDir walks dir's entries in order until the terminator or the chain
// end. name selects the entry to find; conflictName (when non-empty)
// flags a second name whose presence the caller treats as a collision.
func (r *Region) scanDir(dir NodeID, name, conflictName string) scanResult {
	var res scanResult
	ino := r.Inode(dir)
	cur := dirCursor{
		oblk:     NullOff,
		prevOblk: NullOff,
		blockIdx: 0,
		dblk:     ino.Blocks[0],
		entry:    0,
	}
	name = entryName(name)
	conflictName = entryName(conflictName)

	for cur.dblk != NullOff {
		for cur.entry < DirentsPerBlock {
			n := r.deNodeAt(cur.dblk, cur.entry)
			if n == NoNode {
				break
			}
			en := r.deNameAt(cur.dblk, cur.entry)
			if conflictName != "" && en == conflictName {
				res.conflict = true
			}
			if en == name {
				res.found = &entryRef{dirCursor: cur, node: n}
			}
			res.last = &entryRef{dirCursor: cur, node: n}
			cur.entry++
		}
		if cur.entry < DirentsPerBlock {
			break
		}
		cur.blockIdx++
		cur.entry = 0
		if cur.oblk == NullOff {
			if cur.blockIdx == OffsNode {
				if ino.Blocklist == NullOff {
					cur.dblk = NullOff
				} else {
					cur.oblk = ino.Blocklist
					cur.blockIdx = 0
					cur.dblk = r.obBlock(cur.oblk, 0)
				}
			} else {
				cur.dblk = ino.Blocks[cur.blockIdx]
			}
		} else {
			if cur.blockIdx == OffsBlock {
				next := r.obNext(cur.oblk)
				if next == NullOff {
					cur.dblk = NullOff
				} else {
					cur.prevOblk = cur.oblk
					cur.oblk = next
					cur.blockIdx = 0
					cur.dblk = r.obBlock(cur.oblk, 0)
				}
			} else {
				cur.dblk = r.obBlock(cur.oblk, cur.blockIdx)
			}
		}
	}
	res.end = cur
	return res
}

// DirLookup returns the node a name resolves to inside dir, or NoNode.
func (r *Region) DirLookup(dir NodeID, name string) NodeID {
	if r.nodeState(dir) != nodeLinked || r.Inode(dir).Mode != ModeDir || name == "" {
		return NoNode
	}
	res := r.scanDir(dir, name, "")
	if res.found == nil {
		return NoNode
	}
	return res.found.node
}

// DirInsert adds a (name, node) entry to dir, incrementing node's link
// count. The entry lands in the terminator slot; when the directory's
// blocks are full a new data block — and, crossing an index boundary, a
// new overflow block — is allocated first. A half-allocated pair is freed
// before reporting no-space, leaving the directory unchanged.
func (r *Region) DirInsert(dir NodeID, name string, node NodeID) error {
	if r.nodeState(dir) != nodeLinked || r.Inode(dir).Mode != ModeDir {
		return ErrInvalid
	}
	if name == "" || r.nodeState(node) == nodeBad {
		return ErrInvalid
	}
	res := r.scanDir(dir, name, "")
	if res.found != nil {
		return ErrExists
	}

	ino := r.Inode(dir)
	end := res.end
	if end.dblk == NullOff {
		// Chain exhausted: grow the vector by one data block.
		var one [1]uint64
		switch {
		case end.oblk == NullOff && end.blockIdx == OffsNode:
			// Direct references full: the chain needs its first
			// overflow block.
			var pair [2]uint64
			if r.Alloc(pair[:1]) == 0 {
				return ErrNoSpace
			}
			if r.Alloc(pair[1:]) == 0 {
				r.Free(pair[:1])
				return ErrNoSpace
			}
			ob, dblk := pair[0], pair[1]
			r.fillOffblock(ob)
			ino.Blocklist = ob
			r.obSetBlock(ob, 0, dblk)
			end.oblk, end.blockIdx, end.dblk = ob, 0, dblk
		case end.oblk != NullOff && end.blockIdx == OffsBlock:
			// Current overflow block full: chain a new one.
			var pair [2]uint64
			if r.Alloc(pair[:1]) == 0 {
				return ErrNoSpace
			}
			if r.Alloc(pair[1:]) == 0 {
				r.Free(pair[:1])
				return ErrNoSpace
			}
			ob, dblk := pair[0], pair[1]
			r.fillOffblock(ob)
			r.obSetNext(end.oblk, ob)
			r.obSetBlock(ob, 0, dblk)
			end.prevOblk, end.oblk, end.blockIdx, end.dblk = end.oblk, ob, 0, dblk
		case end.oblk == NullOff:
			if r.Alloc(one[:]) == 0 {
				return ErrNoSpace
			}
			ino.Blocks[end.blockIdx] = one[0]
			end.dblk = one[0]
		default:
			if r.Alloc(one[:]) == 0 {
				return ErrNoSpace
			}
			r.obSetBlock(end.oblk, end.blockIdx, one[0])
			end.dblk = one[0]
		}
		end.entry = 0
		ino.Nblocks++
	}

	r.deSetNodeAt(end.dblk, end.entry, node)
	r.deSetNameAt(end.dblk, end.entry, entryName(name))
	if end.entry+1 < DirentsPerBlock {
		r.deSetNodeAt(end.dblk, end.entry+1, NoNode)
	}
	ino.Size++
	r.PutInode(dir, ino)

	target := r.Inode(node)
	target.Nlinks++
	r.PutInode(node, target)
	return nil
}

// DirRemove deletes name from dir and returns the node it referenced,
// decrementing that node's link count. The vacated slot is filled with
// the directory's last entry so entries stay packed; when that empties
// the final data block the block is freed, along with an overflow block
// left indexing nothing. Removing a non-empty directory fails with
// ErrNotEmpty.
func (r *Region) DirRemove(dir NodeID, name string) (NodeID, error) {
	if r.nodeState(dir) != nodeLinked || r.Inode(dir).Mode != ModeDir || name == "" {
		return NoNode, ErrInvalid
	}
	res := r.scanDir(dir, name, "")
	if res.found == nil {
		return NoNode, ErrNotFound
	}
	node := res.found.node
	target := r.Inode(node)
	if target.Mode == ModeDir && target.Size > 0 {
		return NoNode, ErrNotEmpty
	}

	last := res.last // non-nil: the directory holds at least res.found
	if last.dblk != res.found.dblk || last.entry != res.found.entry {
		r.deSetNodeAt(res.found.dblk, res.found.entry, last.node)
		r.deSetNameAt(res.found.dblk, res.found.entry, r.deNameAt(last.dblk, last.entry))
	}
	r.deSetNodeAt(last.dblk, last.entry, NoNode)

	ino := r.Inode(dir)
	if last.entry == 0 {
		// The final data block is now empty: give it back, and unlink
		// an overflow block whose first slot it occupied.
		if last.oblk == NullOff {
			r.freeOne(&ino.Blocks[last.blockIdx])
		} else {
			b := r.obBlock(last.oblk, last.blockIdx)
			r.freeOne(&b)
			r.obSetBlock(last.oblk, last.blockIdx, b)
			if last.blockIdx == 0 {
				if last.prevOblk == NullOff {
					r.freeOne(&ino.Blocklist)
				} else {
					n := r.obNext(last.prevOblk)
					r.freeOne(&n)
					r.obSetNext(last.prevOblk, n)
				}
			}
		}
		ino.Nblocks--
	}
	ino.Size--
	r.PutInode(dir, ino)

	target.Nlinks--
	r.PutInode(node, target)
	return node, nil
}

// DirRename gives an existing entry a new name within the same directory.
// Renaming to the entry's own name is a no-op; renaming onto another
// existing name fails with ErrExists. Returns the entry's node.
func (r *Region) DirRename(dir NodeID, oldName, newName string) (NodeID, error) {
	if r.nodeState(dir) != nodeLinked || r.Inode(dir).Mode != ModeDir {
		return NoNode, ErrInvalid
	}
	if oldName == "" || newName == "" {
		return NoNode, ErrInvalid
	}
	if entryName(oldName) == entryName(newName) {
		n := r.DirLookup(dir, oldName)
		if n == NoNode {
			return NoNode, ErrNotFound
		}
		return n, nil
	}
	res := r.scanDir(dir, oldName, newName)
	if res.conflict {
		return NoNode, ErrExists
	}
	if res.found == nil {
		return NoNode, ErrNotFound
	}
	r.deSetNameAt(res.found.dblk, res.found.entry, entryName(newName))
	return res.found.node, nil
}

// DirEntries returns the names in dir, in storage order. The result is
// freshly allocated scratch memory; nothing references the region after
// return.
func (r *Region) DirEntries(dir NodeID) []string {
	ino := r.Inode(dir)
	names := make([]string, 0, ino.Size)
	var cur pos
	r.loadPos(&cur, dir)
	for cur.data != NullOff {
		n := r.deNodeAt(cur.dblk, cur.dpos)
		if n == NoNode {
			break
		}
		names = append(names, r.deNameAt(cur.dblk, cur.dpos))
		r.seek(&cur, 1)
	}
	return names
}
