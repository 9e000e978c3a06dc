package region

import (
	"testing"
	"time"
)

// testEpoch is the fixed clock used by the engine tests.
var testEpoch = time.Unix(1700000000, 0)

// newTestRegion opens and initialises a fresh region of size bytes.
func newTestRegion(t *testing.T, size int) *Region {
	t.Helper()
	buf := make([]byte, size)
	r, err := Open(buf)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	r.Init(testEpoch)
	return r
}

// mustNode claims a free inode, links it into parent under name and
// stamps its kind.
func mustNode(t *testing.T, r *Region, parent NodeID, name string, mode uint64) NodeID {
	t.Helper()
	n := r.NewNode()
	if n == NoNode {
		t.Fatalf("NewNode: inode table exhausted")
	}
	if err := r.DirInsert(parent, name, n); err != nil {
		t.Fatalf("DirInsert(%q): %v", name, err)
	}
	ino := r.Inode(n)
	ino.Mode = mode
	r.PutInode(n, ino)
	return n
}

func TestInitLayout(t *testing.T) {
	r := newTestRegion(t, 64*1024)

	if got := r.Blocks(); got != 64 {
		t.Errorf("Blocks = %d, want 64", got)
	}
	if got := r.u64(hdrNtsize); got != 3 {
		t.Errorf("ntsize = %d, want 3", got)
	}
	if got := r.u64(hdrNodetbl); got != InodeSize {
		t.Errorf("nodetbl = %d, want %d", got, InodeSize)
	}
	if got := r.FreeBlocks(); got != 61 {
		t.Errorf("free = %d, want 61", got)
	}
	if got := r.u64(hdrFreelist); got != 3 {
		t.Errorf("freelist head = %d, want 3", got)
	}
	fr := r.freereg(3)
	if fr.size != 61 || fr.next != NullOff {
		t.Errorf("free region = {%d %#x}, want {61 NullOff}", fr.size, fr.next)
	}
	if got := r.MaxNodes(); got != 23 {
		t.Errorf("MaxNodes = %d, want 23", got)
	}
}

func TestInitRoot(t *testing.T) {
	r := newTestRegion(t, 64*1024)

	root := r.Inode(0)
	if root.Mode != ModeDir {
		t.Errorf("root mode = %d, want ModeDir", root.Mode)
	}
	if root.Nlinks != 1 {
		t.Errorf("root nlinks = %d, want 1", root.Nlinks)
	}
	if root.Size != 0 || root.Nblocks != 0 {
		t.Errorf("root size/nblocks = %d/%d, want 0/0", root.Size, root.Nblocks)
	}
	if root.Blocks[0] != NullOff || root.Blocklist != NullOff {
		t.Errorf("root block refs not broken: %#x %#x", root.Blocks[0], root.Blocklist)
	}
	if root.Ctime != ToTimespec(testEpoch) {
		t.Errorf("root ctime = %+v, want init time", root.Ctime)
	}
}

func TestInitIdempotent(t *testing.T) {
	r := newTestRegion(t, 64*1024)
	mustNode(t, r, 0, "survivor", ModeFile)

	// A second Init must recognise the live image and leave it alone.
	r.Init(testEpoch.Add(time.Hour))

	if got := r.DirLookup(0, "survivor"); got == NoNode {
		t.Fatal("reinitialisation destroyed a live filesystem")
	}
	if got := r.Inode(0).Ctime; got != ToTimespec(testEpoch) {
		t.Errorf("root ctime changed on reinit: %+v", got)
	}
}

func TestNewNodeSkipsRootAndClaimed(t *testing.T) {
	r := newTestRegion(t, 64*1024)

	first := r.NewNode()
	if first != 1 {
		t.Fatalf("first free node = %d, want 1", first)
	}
	// Unclaimed slots are handed out again until linked.
	if again := r.NewNode(); again != first {
		t.Errorf("unclaimed slot not reoffered: got %d", again)
	}
	mustNode(t, r, 0, "a", ModeFile)
	if next := r.NewNode(); next != 2 {
		t.Errorf("next free node = %d, want 2", next)
	}
}

func TestNewNodeExhaustion(t *testing.T) {
	r := newTestRegion(t, 64*1024)

	for i := uint64(1); i < r.MaxNodes(); i++ {
		mustNode(t, r, 0, name(i), ModeFile)
	}
	if got := r.NewNode(); got != NoNode {
		t.Errorf("NewNode on full table = %d, want NoNode", got)
	}
}

// name generates distinct short names for bulk tests.
func name(i uint64) string {
	return string([]byte{'f', byte('a' + i/26%26), byte('a' + i%26)})
}
