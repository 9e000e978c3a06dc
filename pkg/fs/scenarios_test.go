package fs

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The scenarios below exercise a fresh 1 MiB region end to end.

func TestScenarioNestedCreateWriteRead(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	require.NoError(t, f.Mkdir("/a"))
	require.NoError(t, f.Mkdir("/a/b"))
	require.NoError(t, f.Mknod("/a/b/f"))

	n, err := f.Write("/a/b/f", []byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = f.Read("/a/b/f", buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))

	attr, err := f.Getattr("/a/b/f", 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 5, attr.Size)
}

func TestScenarioTruncateReadsZeros(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	require.NoError(t, f.Mknod("/f"))
	require.NoError(t, f.Truncate("/f", 4096))

	buf := make([]byte, 4096)
	n, err := f.Read("/f", buf, 0)
	require.NoError(t, err)
	require.Equal(t, 4096, n)
	for i, b := range buf {
		require.Zerof(t, b, "byte %d not zero", i)
	}
}

func TestScenarioSparseWrite(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	require.NoError(t, f.Mknod("/f"))
	n, err := f.Write("/f", []byte("X"), 2000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	buf := make([]byte, 2001)
	n, err = f.Read("/f", buf, 0)
	require.NoError(t, err)
	require.Equal(t, 2001, n)
	for i := 0; i < 2000; i++ {
		require.Zerof(t, buf[i], "hole byte %d not zero", i)
	}
	require.EqualValues(t, 'X', buf[2000])

	attr, err := f.Getattr("/f", 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2001, attr.Size)
}

func TestScenarioRmdirNonEmpty(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	require.NoError(t, f.Mkdir("/a"))
	require.NoError(t, f.Mknod("/a/f"))

	err := f.Rmdir("/a")
	require.Error(t, err)
	require.Equal(t, syscall.EEXIST, errnoOf(err))

	require.NoError(t, f.Unlink("/a/f"))
	require.NoError(t, f.Rmdir("/a"))
	_, err = f.Getattr("/a", 0, 0)
	require.Equal(t, syscall.ENOENT, errnoOf(err))
}

func TestScenarioRename(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	require.NoError(t, f.Mknod("/f"))
	require.NoError(t, f.Rename("/f", "/g"))

	_, err := f.Getattr("/f", 0, 0)
	require.Equal(t, syscall.ENOENT, errnoOf(err))
	_, err = f.Getattr("/g", 0, 0)
	require.NoError(t, err)
}

func TestScenarioRenameAcrossParents(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	require.NoError(t, f.Mkdir("/a"))
	require.NoError(t, f.Mkdir("/b"))
	require.NoError(t, f.Mknod("/a/f"))
	_, err := f.Write("/a/f", []byte("payload"), 0)
	require.NoError(t, err)

	require.NoError(t, f.Rename("/a/f", "/b/moved"))

	_, err = f.Getattr("/a/f", 0, 0)
	require.Equal(t, syscall.ENOENT, errnoOf(err))
	buf := make([]byte, 7)
	n, err := f.Read("/b/moved", buf, 0)
	require.NoError(t, err)
	require.Equal(t, "payload", string(buf[:n]))

	// Renaming onto an existing name is refused.
	require.NoError(t, f.Mknod("/a/x"))
	err = f.Rename("/a/x", "/b/moved")
	require.Equal(t, syscall.EEXIST, errnoOf(err))
}

func TestScenarioWriteOnFullFilesystem(t *testing.T) {
	f, _ := newTestFS(t, 1<<20)

	require.NoError(t, f.Mknod("/big"))
	// Consume the whole pool, then some.
	huge := make([]byte, 2<<20)
	n, err := f.Write("/big", huge, 0)
	require.Equal(t, syscall.ENOSPC, errnoOf(err))
	require.Positive(t, n)
	require.Zero(t, f.Statfs().BlocksFree)

	// A write on a fresh file now cannot allocate anything.
	require.NoError(t, f.Mknod("/late"))
	n, err = f.Write("/late", []byte("overflow"), 0)
	require.Error(t, err)
	require.Zero(t, n)

	// The region stays coherent: removing the full file frees space and
	// the fresh file can then be written.
	require.NoError(t, f.Unlink("/big"))
	require.Positive(t, f.Statfs().BlocksFree)
	n, err = f.Write("/late", []byte("overflow"), 0)
	require.NoError(t, err)
	require.Equal(t, len("overflow"), n)
}

// TestRemountAtDifferentAddress verifies the position-independence
// property: a filesystem opened over a byte copy of the region (a new
// base address) behaves identically.
func TestRemountAtDifferentAddress(t *testing.T) {
	f, buf := newTestFS(t, 1<<20)

	require.NoError(t, f.Mkdir("/a"))
	require.NoError(t, f.Mknod("/a/f"))
	_, err := f.Write("/a/f", []byte("persistent"), 100)
	require.NoError(t, err)

	// "Unmount": drop the filesystem, copy the image elsewhere, remount.
	copied := append([]byte(nil), buf...)
	g, err := New(copied, WithClock(func() time.Time { return testClock }))
	require.NoError(t, err)

	names, err := g.Readdir("/a")
	require.NoError(t, err)
	require.Equal(t, []string{"f"}, names)

	attr, err := g.Getattr("/a/f", 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 110, attr.Size)

	got := make([]byte, 10)
	n, err := g.Read("/a/f", got, 100)
	require.NoError(t, err)
	require.Equal(t, "persistent", string(got[:n]))

	// The remounted instance keeps full write capability.
	free := g.Statfs().BlocksFree
	require.NoError(t, g.Mknod("/a/new"))
	_, err = g.Write("/a/new", []byte("y"), 0)
	require.NoError(t, err)
	require.Equal(t, free-1, g.Statfs().BlocksFree)
}
