package fs

import (
	"bytes"
	"errors"
	"syscall"
	"testing"
	"time"
)

var testClock = time.Unix(1700000000, 500)

// newTestFS opens a filesystem over a fresh buffer with a fixed clock
// and returns both.
func newTestFS(t *testing.T, size int) (*Filesystem, []byte) {
	t.Helper()
	buf := make([]byte, size)
	f, err := New(buf, WithClock(func() time.Time { return testClock }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f, buf
}

func errnoOf(err error) syscall.Errno {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Errno()
	}
	return 0
}

func TestWriteThenReadLaw(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)
	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}

	payload := []byte("the quick brown fox")
	n, err := f.Write("/f", payload, 7)
	if err != nil || n != len(payload) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	back := make([]byte, len(payload))
	n, err = f.Read("/f", back, 7)
	if err != nil || n != len(payload) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if !bytes.Equal(back, payload) {
		t.Errorf("read %q, want %q", back, payload)
	}
}

func TestZeroLengthWriteIsNoop(t *testing.T) {
	f, buf := newTestFS(t, 1<<20)
	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}
	before := append([]byte(nil), buf...)

	n, err := f.Write("/f", nil, 123)
	if err != nil || n != 0 {
		t.Fatalf("Write = %d, %v; want 0, nil", n, err)
	}
	if !bytes.Equal(buf, before) {
		t.Error("zero-length write mutated the region")
	}
}

func TestTruncateToZeroThenRead(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)
	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}
	if _, err := f.Write("/f", []byte("data"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Truncate("/f", 0); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	n, err := f.Read("/f", make([]byte, 16), 0)
	if err != nil || n != 0 {
		t.Errorf("Read after truncate = %d, %v; want 0, nil", n, err)
	}
}

func TestMknodUnlinkRestoresImage(t *testing.T) {
	f, buf := newTestFS(t, 1<<20)
	// Force initialisation before the snapshot so only the create and
	// remove are being compared.
	if _, err := f.Getattr("/", 0, 0); err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	before := append([]byte(nil), buf...)

	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}
	if _, err := f.Write("/f", []byte("short lived"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Unlink("/f"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if !bytes.Equal(buf, before) {
		for i := range buf {
			if buf[i] != before[i] {
				t.Fatalf("image diverges at byte %d (block %d)", i, i/1024)
			}
		}
	}
}

func TestRenameOntoSelfIsNoop(t *testing.T) {
	f, buf := newTestFS(t, 1<<20)
	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}
	before := append([]byte(nil), buf...)

	if err := f.Rename("/f", "/f"); err != nil {
		t.Fatalf("Rename onto self = %v, want success", err)
	}
	if !bytes.Equal(buf, before) {
		t.Error("self-rename mutated the region")
	}
}

func TestUtimens(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)
	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}
	atime := time.Unix(1000, 1)
	mtime := time.Unix(2000, 2)
	if err := f.Utimens("/f", atime, mtime); err != nil {
		t.Fatalf("Utimens: %v", err)
	}
	attr, err := f.Getattr("/f", 0, 0)
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if !attr.Atime.Equal(atime) || !attr.Mtime.Equal(mtime) {
		t.Errorf("times = %v/%v, want %v/%v", attr.Atime, attr.Mtime, atime, mtime)
	}
	if err := f.Utimens("/ghost", atime, mtime); errnoOf(err) != syscall.ENOENT {
		t.Errorf("Utimens on missing path = %v, want ENOENT", err)
	}
}

func TestStatfs(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	info := f.Statfs()
	if info.BlockSize != 1024 {
		t.Errorf("BlockSize = %d, want 1024", info.BlockSize)
	}
	if info.Blocks != 1024 {
		t.Errorf("Blocks = %d, want 1024", info.Blocks)
	}
	if info.NameMax != 223 {
		t.Errorf("NameMax = %d, want 223", info.NameMax)
	}
	if info.BlocksFree != info.BlocksAvail {
		t.Errorf("free %d != avail %d", info.BlocksFree, info.BlocksAvail)
	}

	free := info.BlocksFree
	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}
	if err := f.Truncate("/f", 4096); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	// One directory block plus four data blocks.
	if got := f.Statfs().BlocksFree; got != free-5 {
		t.Errorf("free = %d, want %d", got, free-5)
	}
}

func TestOpenTouchesAtime(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)
	if err := f.Mknod("/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}

	later := testClock.Add(time.Hour)
	f.now = func() time.Time { return later }
	if err := f.Open("/f"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	attr, _ := f.Getattr("/f", 0, 0)
	if !attr.Atime.Equal(later) {
		t.Errorf("atime = %v, want %v", attr.Atime, later)
	}
	if err := f.Open("/ghost"); errnoOf(err) != syscall.ENOENT {
		t.Errorf("Open missing = %v, want ENOENT", err)
	}
}

func TestGetattrKinds(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)
	if err := f.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Mknod("/d/f"); err != nil {
		t.Fatalf("Mknod: %v", err)
	}

	dir, err := f.Getattr("/d", 7, 8)
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if dir.Mode != 0o040755 {
		t.Errorf("dir mode = %o, want 040755", dir.Mode)
	}
	if dir.UID != 7 || dir.GID != 8 {
		t.Errorf("uid/gid = %d/%d, want 7/8", dir.UID, dir.GID)
	}
	if dir.Size != 256 {
		t.Errorf("dir size = %d, want one 256-byte entry", dir.Size)
	}

	file, err := f.Getattr("/d/f", 0, 0)
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if file.Mode != 0o100755 {
		t.Errorf("file mode = %o, want 100755", file.Mode)
	}
	if file.Nlink != 1 {
		t.Errorf("nlink = %d, want 1", file.Nlink)
	}
	if !file.Ctime.Equal(testClock) {
		t.Errorf("ctime = %v, want creation clock", file.Ctime)
	}
}

func TestReaddir(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)
	if err := f.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	names, err := f.Readdir("/d")
	if err != nil || names != nil {
		t.Fatalf("Readdir(empty) = %v, %v; want nil, nil", names, err)
	}

	for _, nm := range []string{"one", "two", "three"} {
		if err := f.Mknod("/d/" + nm); err != nil {
			t.Fatalf("Mknod(%s): %v", nm, err)
		}
	}
	names, err = f.Readdir("/d")
	if err != nil || len(names) != 3 {
		t.Fatalf("Readdir = %v, %v", names, err)
	}

	if _, err := f.Readdir("/d/one"); errnoOf(err) != syscall.ENOTDIR {
		t.Errorf("Readdir on file = %v, want ENOTDIR", err)
	}
	if _, err := f.Readdir("/ghost"); errnoOf(err) != syscall.ENOENT {
		t.Errorf("Readdir missing = %v, want ENOENT", err)
	}
}

func TestReadWriteWrongKind(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)
	if err := f.Mkdir("/d"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	if _, err := f.Read("/d", make([]byte, 4), 0); errnoOf(err) != syscall.EISDIR {
		t.Errorf("Read on dir = %v, want EISDIR", err)
	}
	if _, err := f.Write("/d", []byte("x"), 0); errnoOf(err) != syscall.EISDIR {
		t.Errorf("Write on dir = %v, want EISDIR", err)
	}
	if err := f.Truncate("/d", 0); errnoOf(err) != syscall.EISDIR {
		t.Errorf("Truncate on dir = %v, want EISDIR", err)
	}
}
