package region

import "sort"

// Block allocator
// ===============
//
// Free space is tracked as a singly linked list of free regions, sorted by
// ascending block offset. Each region's first block holds its descriptor
// (size in blocks, next region). Adjacent regions are always merged on
// free, so offset+size never equals the next region's offset, and the
// header's cached free count always equals the sum of the region sizes.

// Alloc fills buf with up to len(buf) newly allocated block offsets, in
// ascending order, and returns how many it allocated. Every handed-out
// block is zeroed. Fewer than len(buf) blocks is a valid outcome when the
// pool runs dry; callers that need all-or-nothing free the partial batch
// and report no-space.
//
// Blocks are peeled from the low end of each free region in turn, so the
// free-list invariants hold even on a partial return.
func (r *Region) Alloc(buf []uint64) int {
	count := len(buf)
	freeoff := r.u64(hdrFreelist)
	prev := NullOff
	alloct := 0

	for alloct < count && freeoff != NullOff {
		fr := r.freereg(freeoff)
		taken := uint64(0)
		for taken < fr.size && alloct < count {
			buf[alloct] = freeoff + taken
			alloct++
			taken++
		}
		for b := uint64(0); b < taken; b++ {
			r.zeroBlock(freeoff + b)
		}
		if taken == fr.size {
			// Region fully consumed: splice it out.
			if prev != NullOff {
				p := r.freereg(prev)
				p.next = fr.next
				r.putFreereg(prev, p)
			} else {
				r.putU64(hdrFreelist, fr.next)
			}
			freeoff = fr.next
		} else {
			// Advance the region past the peeled blocks.
			fr.size -= taken
			freeoff += taken
			if prev != NullOff {
				p := r.freereg(prev)
				p.next = freeoff
				r.putFreereg(prev, p)
			} else {
				r.putU64(hdrFreelist, freeoff)
			}
			r.putFreereg(freeoff, fr)
			prev = freeoff
		}
	}

	r.putU64(hdrFree, r.u64(hdrFree)-uint64(alloct))
	return alloct
}

// Free returns blocks to the pool and reports how many were actually
// freed. buf is sorted ascending in place, then merged into the free list
// in a single walk. Offsets below the inode table, beyond the region, or
// already inside a free region (double free) are silently dropped. Every
// slot of buf that was freed or dropped is overwritten with NullOff, so a
// caller that passed live block references gets them cleared for free.
//
// Freed blocks are scrubbed and absorbed descriptors erased, keeping the
// pool canonical: every free block is all zeros except the descriptor
// words at each region head. Allocating and freeing a block therefore
// returns the image to its exact prior bytes.
func (r *Region) Free(buf []uint64) int {
	sort.Slice(buf, func(i, j int) bool { return buf[i] < buf[j] })

	ntsize := r.u64(hdrNtsize)
	size := r.u64(hdrSize)
	freed := 0

	// prev is the free region known to end at or before the offset being
	// inserted; NullOff while insertions still precede the list head.
	prev := NullOff

	for i := range buf {
		off := buf[i]
		if off == NullOff {
			continue
		}
		if off < ntsize || off >= size {
			buf[i] = NullOff
			continue
		}

		// Advance to the insertion point. Offsets are ascending, so the
		// walk never restarts.
		cur := r.u64(hdrFreelist)
		if prev != NullOff {
			cur = r.freereg(prev).next
		}
		for cur != NullOff && off >= cur+r.freereg(cur).size {
			prev = cur
			cur = r.freereg(cur).next
		}

		// Double-free guard: inside cur, or inside prev's span.
		if cur != NullOff && off >= cur {
			buf[i] = NullOff
			continue
		}
		if prev != NullOff {
			p := r.freereg(prev)
			if off < prev+p.size {
				buf[i] = NullOff
				continue
			}
			if off == prev+p.size {
				// Backward merge: extend prev over the freed block.
				r.zeroBlock(off)
				p.size++
				if next := p.next; next != NullOff && prev+p.size == next {
					n := r.freereg(next)
					p.size += n.size
					p.next = n.next
					r.eraseFreereg(next)
				}
				r.putFreereg(prev, p)
				buf[i] = NullOff
				freed++
				continue
			}
		}

		// New region at off, linked between prev and cur.
		r.zeroBlock(off)
		fr := freereg{size: 1, next: cur}
		if cur != NullOff && off+1 == cur {
			// Forward merge with the region that follows.
			n := r.freereg(cur)
			fr.size += n.size
			fr.next = n.next
			r.eraseFreereg(cur)
		}
		r.putFreereg(off, fr)
		if prev != NullOff {
			p := r.freereg(prev)
			p.next = off
			r.putFreereg(prev, p)
		} else {
			r.putU64(hdrFreelist, off)
		}
		prev = off
		buf[i] = NullOff
		freed++
	}

	r.putU64(hdrFree, r.u64(hdrFree)+uint64(freed))
	return freed
}

// freeOne frees a single block reference, clearing *ref when freed.
func (r *Region) freeOne(ref *uint64) {
	one := [1]uint64{*ref}
	r.Free(one[:])
	*ref = one[0]
}
