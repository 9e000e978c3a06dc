package region

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Region is a filesystem image over a caller-provided memory buffer.
//
// The buffer is the only state: two Regions opened over the same bytes are
// interchangeable, and a Region opened over a byte-for-byte copy of the
// buffer resumes identically. Region keeps no cross-call state of its own
// beyond the buffer reference, which makes the image relocatable between
// processes and mounts.
//
// Region is not safe for concurrent use; the host driver is expected to
// serialise calls (FUSE single-threaded operation model).
type Region struct {
	buf []byte
}

// Sentinel errors surfaced by the engines. The POSIX boundary layer maps
// them to errno-style codes.
var (
	ErrNotFound = errors.New("no such entry")
	ErrExists   = errors.New("entry already exists")
	ErrNotEmpty = errors.New("directory not empty")
	ErrNoSpace  = errors.New("no free blocks")
	ErrNoInode  = errors.New("no free inode slots")
	ErrInvalid  = errors.New("invalid argument")
)

// MinSize is the smallest usable region: one block for the header and
// inode table plus one data block.
const MinSize = 2 * BlockSize

// Open wraps buf as a filesystem region. The buffer is used in place; any
// trailing partial block is ignored. Open does not initialise the image —
// Init must run before the first operation (and is cheap thereafter).
func Open(buf []byte) (*Region, error) {
	if len(buf) < MinSize {
		return nil, fmt.Errorf("region of %d bytes is below the %d byte minimum", len(buf), MinSize)
	}
	return &Region{buf: buf}, nil
}

// Blocks returns the region size in blocks.
func (r *Region) Blocks() uint64 {
	return uint64(len(r.buf)) / BlockSize
}

// FreeBlocks returns the cached free block count from the header.
func (r *Region) FreeBlocks() uint64 {
	return r.u64(hdrFree)
}

// MaxNodes returns the number of inode slots in the table. The first
// inode-sized slot of the table block range holds the header, hence the
// minus one.
func (r *Region) MaxNodes() uint64 {
	return r.u64(hdrNtsize)*NodesPerBlock - 1
}

// Init bootstraps a fresh region. The header's size field is the
// initialized marker: when it already equals the block count the region
// was set up by a previous mount and Init returns immediately, so every
// entry point can run it unconditionally.
//
// Initialisation reserves the front of the region for the inode table
// (sized so at least one inode exists per BlocksPerFile data blocks),
// links all remaining blocks into a single free region, and marks inode
// slot 0 as the root directory. The size field is written last so a
// partially initialised region is still recognised as fresh.
func (r *Region) Init(now time.Time) {
	blocks := r.Blocks()
	if r.u64(hdrSize) == blocks {
		return
	}

	ntsize := (BlocksPerFile*(1+NodesPerBlock) + blocks) / (1 + BlocksPerFile*NodesPerBlock)
	r.putU64(hdrNtsize, ntsize)
	r.putU64(hdrNodetbl, InodeSize)
	r.putU64(hdrFreelist, ntsize)
	r.putU64(hdrFree, blocks-ntsize)

	fr := freereg{size: blocks - ntsize, next: NullOff}
	r.putFreereg(ntsize, fr)

	// Clear the table and break every block reference so the free-slot
	// probe (nlinks == 0 && blocks[0] == NullOff) holds from the start.
	tbl := r.u64(hdrNodetbl)
	for b := tbl; b < ntsize*BlockSize; b++ {
		r.buf[b] = 0
	}
	for n := NodeID(0); uint64(n) < r.MaxNodes(); n++ {
		r.ClearNode(n)
	}

	root := r.Inode(0)
	root.Mode = ModeDir
	root.Nlinks = 1
	root.Atime = ToTimespec(now)
	root.Mtime = root.Atime
	root.Ctime = root.Atime
	r.PutInode(0, root)

	r.putU64(hdrSize, blocks)
}

// word accessors

func (r *Region) u64(off uint64) uint64 {
	return binary.LittleEndian.Uint64(r.buf[off : off+8])
}

func (r *Region) putU64(off, v uint64) {
	binary.LittleEndian.PutUint64(r.buf[off:off+8], v)
}

// block returns the backing bytes of block b.
func (r *Region) block(b uint64) []byte {
	return r.buf[b*BlockSize : (b+1)*BlockSize]
}

func (r *Region) zeroBlock(b uint64) {
	blk := r.block(b)
	for i := range blk {
		blk[i] = 0
	}
}

// free region descriptors

type freereg struct {
	size uint64
	next uint64
}

func (r *Region) freereg(b uint64) freereg {
	off := b * BlockSize
	return freereg{size: r.u64(off + frSize), next: r.u64(off + frNext)}
}

func (r *Region) putFreereg(b uint64, fr freereg) {
	off := b * BlockSize
	r.putU64(off+frSize, fr.size)
	r.putU64(off+frNext, fr.next)
}

// eraseFreereg zeroes a descriptor absorbed by a merge, so the interior
// of a free region stays all zeros.
func (r *Region) eraseFreereg(b uint64) {
	off := b * BlockSize
	r.putU64(off+frSize, 0)
	r.putU64(off+frNext, 0)
}

// overflow index blocks

func (r *Region) obBlock(ob uint64, i int) uint64 {
	return r.u64(ob*BlockSize + uint64(i)*8)
}

func (r *Region) obSetBlock(ob uint64, i int, v uint64) {
	r.putU64(ob*BlockSize+uint64(i)*8, v)
}

func (r *Region) obNext(ob uint64) uint64 {
	return r.u64(ob*BlockSize + obNextOff)
}

func (r *Region) obSetNext(ob uint64, v uint64) {
	r.putU64(ob*BlockSize+obNextOff, v)
}

// fillOffblock breaks every reference in a freshly allocated overflow
// block. All-ones bytes make every word NullOff in one pass.
func (r *Region) fillOffblock(ob uint64) {
	blk := r.block(ob)
	for i := range blk {
		blk[i] = 0xFF
	}
}

// Timespec is a region-encoded timestamp: seconds and nanoseconds since
// the Unix epoch, host real-time clock.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// ToTimespec converts a time.Time to the region encoding.
func ToTimespec(t time.Time) Timespec {
	return Timespec{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

// Time converts the region encoding back to a time.Time.
func (ts Timespec) Time() time.Time {
	return time.Unix(ts.Sec, ts.Nsec)
}
