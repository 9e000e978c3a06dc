package fs

import "syscall"

// Error is a filesystem boundary error: an errno-shaped code plus the
// path the operation was addressing. Engine-level failures are translated
// into these at the operation boundary, so hosts (FUSE, tests, tools)
// only ever see one error shape.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Path is the filesystem path related to the error.
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Code.String() + ": " + e.Path
	}
	return e.Code.String()
}

// Errno returns the POSIX errno the code maps to.
func (e *Error) Errno() syscall.Errno {
	return e.Code.Errno()
}

// ErrorCode is the category of a filesystem error.
type ErrorCode int

const (
	// ErrNotFound: the path does not resolve.
	ErrNotFound ErrorCode = iota

	// ErrNotDir: a file turned up where a directory was expected.
	ErrNotDir

	// ErrIsDir: a directory turned up where a file was expected.
	ErrIsDir

	// ErrExists: name collision, or a directory that is not empty.
	ErrExists

	// ErrNoSpace: no free inode slot, or the block pool ran dry while
	// adding a directory entry or in the middle of a write.
	ErrNoSpace

	// ErrNoSpaceTrunc: the block pool could not cover a truncate.
	ErrNoSpaceTrunc

	// ErrInvalid: bad argument, or the block pool could not cover a
	// write's initial growth.
	ErrInvalid

	// ErrAccess: a cross-parent rename was refused up front (non-empty
	// directory) or its rollback path fired.
	ErrAccess

	// ErrFault: unrecoverable region corruption.
	ErrFault
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "no such file or directory"
	case ErrNotDir:
		return "not a directory"
	case ErrIsDir:
		return "is a directory"
	case ErrExists:
		return "file exists"
	case ErrNoSpace:
		return "no space left on device"
	case ErrNoSpaceTrunc:
		return "operation not permitted"
	case ErrInvalid:
		return "invalid argument"
	case ErrAccess:
		return "permission denied"
	case ErrFault:
		return "bad address"
	default:
		return "unknown error"
	}
}

// Errno maps the code onto the errno each boundary operation reports:
// ENOSPC for inode or block exhaustion, EPERM for a failed truncate,
// EINVAL for a failed initial write growth, EACCES for a refused or
// rolled-back cross-parent rename, EEXIST for both collisions and busy
// directories.
func (c ErrorCode) Errno() syscall.Errno {
	switch c {
	case ErrNotFound:
		return syscall.ENOENT
	case ErrNotDir:
		return syscall.ENOTDIR
	case ErrIsDir:
		return syscall.EISDIR
	case ErrExists:
		return syscall.EEXIST
	case ErrNoSpace:
		return syscall.ENOSPC
	case ErrNoSpaceTrunc:
		return syscall.EPERM
	case ErrInvalid:
		return syscall.EINVAL
	case ErrAccess:
		return syscall.EACCES
	case ErrFault:
		return syscall.EFAULT
	default:
		return syscall.EIO
	}
}
