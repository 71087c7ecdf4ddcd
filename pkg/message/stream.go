package message

import (
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// TempBody is the body sentinel that requests a fresh in-memory stream, the
// same as passing nil.
const TempBody = "mem://temp"

// Stream is a message body. Streams are shared between the messages derived
// from one another: closing or detaching a stream affects every message that
// references it. Streams are not safe for concurrent use.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Tell returns the current position.
	Tell() (int64, error)
	// EOF reports whether a read has hit the end of the source. It is true
	// for closed or detached streams.
	EOF() bool
	// Size returns the length of the source when it is known.
	Size() (int64, bool)

	IsReadable() bool
	IsWritable() bool
	IsSeekable() bool

	// Contents reads the remaining bytes.
	Contents() ([]byte, error)
	// String returns the whole content, rewinding first when the stream is
	// seekable. It returns "" on any error.
	String() string
	// Detach releases the underlying resource to the caller and leaves the
	// stream unusable. It returns nil when already closed or detached.
	Detach() any
}

type streamState int

const (
	stateOpen streamState = iota
	stateClosed
	stateDetached
)

func (s streamState) err(op string) error {
	switch s {
	case stateClosed:
		return &Error{Op: op, Err: ErrStreamClosed}
	case stateDetached:
		return &Error{Op: op, Err: ErrStreamDetached}
	}
	return nil
}

var (
	memFs     = afero.NewMemMapFs()
	defaultFs atomic.Pointer[afero.Fs]
)

func init() {
	var fs afero.Fs = afero.NewOsFs()
	defaultFs.Store(&fs)
}

// SetFilesystem replaces the filesystem that string body paths and uploaded
// file paths are resolved against. The default is the OS filesystem.
func SetFilesystem(fs afero.Fs) {
	defaultFs.Store(&fs)
}

// Filesystem returns the filesystem used for string body paths.
func Filesystem() afero.Fs {
	return *defaultFs.Load()
}

// FileStream is a Stream over any byte source: an afero or os file, or any
// combination of io.Reader, io.Writer, io.Seeker and io.Closer. Capabilities
// follow the interfaces the resource implements.
type FileStream struct {
	resource any
	r        io.Reader
	w        io.Writer
	s        io.Seeker
	c        io.Closer
	pos      int64
	eof      bool
	state    streamState
	cleanup  func()
}

// NewFileStream wraps resource, which must be at least an io.Reader or an
// io.Writer.
func NewFileStream(resource any) (*FileStream, error) {
	r, _ := resource.(io.Reader)
	w, _ := resource.(io.Writer)
	if r == nil && w == nil {
		return nil, newError("new stream", ErrInvalidArgument, "unsupported stream resource %T", resource)
	}
	st := &FileStream{resource: resource, r: r, w: w}
	st.s, _ = resource.(io.Seeker)
	st.c, _ = resource.(io.Closer)
	return st, nil
}

// NewTempStream returns an empty read/write/seek stream held in memory.
func NewTempStream() (*FileStream, error) {
	name := "/" + uuid.NewString()
	f, err := memFs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, newError("new temp stream", ErrInvalidArgument, "%v", err)
	}
	st, _ := NewFileStream(f)
	st.cleanup = func() { _ = memFs.Remove(name) }
	return st, nil
}

// OpenStream opens path on fs with the given os.OpenFile flags. Readability
// and writability follow the access mode in flag.
func OpenStream(fs afero.Fs, path string, flag int) (*FileStream, error) {
	if path == "" {
		return nil, newError("open stream", ErrInvalidArgument, "empty path")
	}
	f, err := fs.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, newError("open stream", ErrInvalidArgument, "%v", err)
	}
	st, _ := NewFileStream(f)
	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		st.w = nil
	case os.O_WRONLY:
		st.r = nil
	}
	return st, nil
}

// Read reads from the resource and advances the position.
func (f *FileStream) Read(p []byte) (int, error) {
	if err := f.state.err("read"); err != nil {
		return 0, err
	}
	if f.r == nil {
		return 0, &Error{Op: "read", Err: ErrStreamUnsupported}
	}
	n, err := f.r.Read(p)
	f.pos += int64(n)
	if errors.Is(err, io.EOF) {
		f.eof = true
	}
	return n, err
}

// Write writes to the resource and advances the position.
func (f *FileStream) Write(p []byte) (int, error) {
	if err := f.state.err("write"); err != nil {
		return 0, err
	}
	if f.w == nil {
		return 0, &Error{Op: "write", Err: ErrStreamUnsupported}
	}
	n, err := f.w.Write(p)
	f.pos += int64(n)
	return n, err
}

// Seek moves the position and clears the end-of-stream flag.
func (f *FileStream) Seek(offset int64, whence int) (int64, error) {
	if err := f.state.err("seek"); err != nil {
		return 0, err
	}
	if f.s == nil {
		return 0, &Error{Op: "seek", Err: ErrStreamUnsupported}
	}
	pos, err := f.s.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	f.pos = pos
	f.eof = false
	return pos, nil
}

// Tell returns the current position. For sources that cannot seek it is the
// number of bytes read or written so far.
func (f *FileStream) Tell() (int64, error) {
	if err := f.state.err("tell"); err != nil {
		return 0, err
	}
	if f.s != nil {
		return f.s.Seek(0, io.SeekCurrent)
	}
	return f.pos, nil
}

// EOF reports whether a read has hit the end or the stream is no longer open.
func (f *FileStream) EOF() bool {
	return f.state != stateOpen || f.eof
}

// Size returns the length reported by Stat, or by seeking to the end for
// seekable sources without Stat.
func (f *FileStream) Size() (int64, bool) {
	if f.state != stateOpen {
		return 0, false
	}
	if st, ok := f.resource.(interface{ Stat() (os.FileInfo, error) }); ok {
		if fi, err := st.Stat(); err == nil {
			return fi.Size(), true
		}
	}
	if f.s == nil {
		return 0, false
	}
	cur, err := f.s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false
	}
	end, err := f.s.Seek(0, io.SeekEnd)
	if _, rerr := f.s.Seek(cur, io.SeekStart); err != nil || rerr != nil {
		return 0, false
	}
	return end, true
}

// IsReadable reports whether the open resource is an io.Reader.
func (f *FileStream) IsReadable() bool { return f.state == stateOpen && f.r != nil }

// IsWritable reports whether the open resource is an io.Writer.
func (f *FileStream) IsWritable() bool { return f.state == stateOpen && f.w != nil }

// IsSeekable reports whether the open resource is an io.Seeker.
func (f *FileStream) IsSeekable() bool { return f.state == stateOpen && f.s != nil }

// Contents reads everything from the current position to the end.
func (f *FileStream) Contents() ([]byte, error) {
	if err := f.state.err("contents"); err != nil {
		return nil, err
	}
	if f.r == nil {
		return nil, &Error{Op: "contents", Err: ErrStreamUnsupported}
	}
	b, err := io.ReadAll(f)
	f.eof = true
	return b, err
}

// String rewinds a seekable stream and returns its whole content, or "" on error.
func (f *FileStream) String() string {
	if !f.IsReadable() {
		return ""
	}
	if f.s != nil {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return ""
		}
	}
	b, err := f.Contents()
	if err != nil {
		return ""
	}
	return string(b)
}

// Close closes the resource when it is an io.Closer. Closing twice returns an
// error matching ErrStreamClosed.
func (f *FileStream) Close() error {
	if err := f.state.err("close"); err != nil {
		return err
	}
	f.state = stateClosed
	var err error
	if f.c != nil {
		err = f.c.Close()
	}
	if f.cleanup != nil {
		f.cleanup()
	}
	return err
}

// Detach returns the underlying resource and leaves the stream unusable.
// It returns nil when the stream is already closed or detached.
func (f *FileStream) Detach() any {
	if f.state != stateOpen {
		return nil
	}
	f.state = stateDetached
	res := f.resource
	f.resource, f.r, f.w, f.s, f.c = nil, nil, nil, nil, nil
	Logger().Debug().Str("resource", typeName(res)).Msg("stream detached")
	return res
}
