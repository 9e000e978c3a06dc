package region

// On-region layout
// ================
//
// The filesystem lives entirely inside a single fixed-size memory region.
// The region may be remapped at a different virtual address between mounts,
// so no record ever stores a process pointer: every internal reference is a
// block offset (for inter-block links) or a byte offset (for records inside
// the inode table). All fields are 64-bit little-endian words.
//
// Region layout:
//
//	[ header | root inode | ... inodes ... ] [ inode table blocks ] [ data blocks ]
//
// The header occupies the first inode-sized slot, so the inode table starts
// at byte offset InodeSize and the table's first record is the root inode.

const (
	// BlockSize is the allocation granularity and the unit of every
	// inter-block offset.
	BlockSize = 1024

	// InodeSize is the size in bytes of one inode record.
	InodeSize = 128

	// NameLen is the fixed size of a directory entry's name field,
	// including the NUL terminator. Names longer than NameLen-1 bytes
	// are truncated on insertion.
	NameLen = 224

	// DirentSize is the size in bytes of one directory entry: a node
	// index, the name field and reserved padding.
	DirentSize = 256

	// OffsNode is the number of direct block references in an inode.
	OffsNode = 5

	// OffsBlock is the number of block references in an overflow index
	// block. The block's last word is the next-link.
	OffsBlock = BlockSize/8 - 1

	// NodesPerBlock is the number of inode records per table block.
	NodesPerBlock = BlockSize / InodeSize

	// DirentsPerBlock is the number of directory entries per data block.
	DirentsPerBlock = BlockSize / DirentSize

	// BlocksPerFile is the data-to-inode ratio used to size the inode
	// table: the table gets at least one inode per BlocksPerFile data
	// blocks.
	BlocksPerFile = 4
)

// NullOff is the sentinel block or byte offset meaning "no link".
const NullOff = ^uint64(0)

// NodeID indexes an inode record in the inode table.
type NodeID int64

// NoNode is the sentinel NodeID meaning "no inode".
const NoNode NodeID = -1

// Inode modes. The zero value marks a free slot; any value other than
// ModeDir and ModeFile is treated as free.
const (
	ModeFree uint64 = 0
	ModeFile uint64 = 1
	ModeDir  uint64 = 2
)

// Header field byte offsets. The header sits at region offset 0.
const (
	hdrSize     = 0  // region size in blocks; doubles as the initialized marker
	hdrNtsize   = 8  // blocks reserved for the inode table
	hdrNodetbl  = 16 // byte offset of the inode table
	hdrFreelist = 24 // block offset of the first free region, or NullOff
	hdrFree     = 32 // cached free block count
)

// Inode field byte offsets within a record.
const (
	inoMode      = 0
	inoNlinks    = 8
	inoSize      = 16
	inoNblocks   = 24
	inoBlocks    = 32 // OffsNode words of direct block references
	inoBlocklist = 72 // first overflow index block, or NullOff
	inoAtime     = 80 // sec, nsec
	inoMtime     = 96
	inoCtime     = 112
)

// Free region descriptor field offsets, relative to the start of the
// region's first block.
const (
	frSize = 0 // contiguous free blocks, including the descriptor's own
	frNext = 8 // next free region, strictly greater, or NullOff
)

// Overflow index block: words 0..OffsBlock-1 are block references, the
// last word is the chain link.
const obNextOff = OffsBlock * 8

// Directory entry field offsets within a DirentSize record.
const (
	deNode = 0 // NodeID, NoNode marks the terminator entry
	deName = 8 // NUL-terminated, NameLen bytes
)
