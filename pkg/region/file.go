package region

// File data I/O
// =============
//
// ReadAt and WriteAt move bytes between caller buffers and a file's data
// blocks through the position cursor: seek to the starting offset, then
// step block by block. Writes past the end of the file grow it through
// the block-list engine, one block at a time once the initial growth to
// the write offset is in place, so a full pool yields a short write
// rather than a failed one.

// ReadAt copies up to len(p) bytes from node's contents starting at off
// into p and returns the number of bytes copied. Reading at or past the
// end of the file returns 0. Holes read as zeros because growth zero-fills.
func (r *Region) ReadAt(node NodeID, p []byte, off uint64) int {
	if len(p) == 0 {
		return 0
	}
	ino := r.Inode(node)
	var cur pos
	r.loadPos(&cur, node)
	r.seek(&cur, off)

	read := 0
	for cur.data != NullOff && read < len(p) {
		blk := r.block(cur.dblk)
		n := BlockSize - cur.dpos
		if avail := ino.Size - (cur.nblk*BlockSize + uint64(cur.dpos)); uint64(n) > avail {
			n = int(avail)
		}
		if rem := len(p) - read; n > rem {
			n = rem
		}
		copy(p[read:read+n], blk[cur.dpos:cur.dpos+n])
		read += n
		r.seek(&cur, uint64(n))
	}
	return read
}

// WriteAt copies p into node's contents starting at off, growing the file
// as needed, and returns the number of bytes written. When the write
// starts past the current end the gap becomes explicit zeros. A pool too
// small for the initial growth fails with ErrInvalid and no bytes
// written; running out of space mid-write returns the short count with
// ErrNoSpace.
func (r *Region) WriteAt(node NodeID, p []byte, off uint64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	ino := r.Inode(node)
	end := off + uint64(len(p))

	if off >= ino.Size {
		// Grow to cover the write offset, rounded up to the block
		// boundary but never past the write's own end.
		target := min64(((off+BlockSize-1)/BlockSize)*BlockSize, end)
		if err := r.Resize(node, target); err != nil {
			return 0, ErrInvalid
		}
	}

	var cur pos
	r.loadPos(&cur, node)
	r.seek(&cur, off)

	written := 0
	for written < len(p) {
		if cur.data == NullOff {
			// Ran into the current end: extend one block at a time so
			// a drained pool still yields the longest possible write.
			ino = r.Inode(node)
			ext := min64(end, (ino.Nblocks+1)*BlockSize)
			if err := r.Resize(node, ext); err != nil {
				return written, ErrNoSpace
			}
			r.loadPos(&cur, node)
			r.seek(&cur, off+uint64(written))
			continue
		}
		ino = r.Inode(node)
		blk := r.block(cur.dblk)
		n := BlockSize - cur.dpos
		if avail := ino.Size - (cur.nblk*BlockSize + uint64(cur.dpos)); uint64(n) > avail {
			n = int(avail)
		}
		if rem := len(p) - written; n > rem {
			n = rem
		}
		copy(blk[cur.dpos:cur.dpos+n], p[written:written+n])
		written += n
		r.seek(&cur, uint64(n))
	}
	return written, nil
}
