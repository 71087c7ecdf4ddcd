package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// InputStream is a forward-only Stream over a single-pass reader such as a
// request body read off the network. Everything read is cached, so String
// returns the complete content even after partial reads. It is neither
// writable nor seekable.
type InputStream struct {
	r     io.Reader
	cache bytes.Buffer
	done  bool
	state streamState
}

// NewInputStream returns an InputStream reading from r.
func NewInputStream(r io.Reader) *InputStream {
	return &InputStream{r: r}
}

// Read reads from the source and caches what it returns.
func (s *InputStream) Read(p []byte) (int, error) {
	if err := s.state.err("read"); err != nil {
		return 0, err
	}
	if s.done {
		return 0, io.EOF
	}
	n, err := s.r.Read(p)
	s.cache.Write(p[:n])
	if errors.Is(err, io.EOF) {
		s.done = true
	}
	return n, err
}

// Write always fails; an InputStream is read-only.
func (s *InputStream) Write([]byte) (int, error) {
	if err := s.state.err("write"); err != nil {
		return 0, err
	}
	return 0, &Error{Op: "write", Err: ErrStreamUnsupported}
}

// Seek always fails; the source is forward-only.
func (s *InputStream) Seek(int64, int) (int64, error) {
	if err := s.state.err("seek"); err != nil {
		return 0, err
	}
	return 0, &Error{Op: "seek", Err: ErrStreamUnsupported}
}

// Tell returns the number of bytes consumed from the source.
func (s *InputStream) Tell() (int64, error) {
	if err := s.state.err("tell"); err != nil {
		return 0, err
	}
	return int64(s.cache.Len()), nil
}

// EOF reports whether the source is drained or the stream is no longer open.
func (s *InputStream) EOF() bool {
	return s.state != stateOpen || s.done
}

// Size is known once the source has been drained.
func (s *InputStream) Size() (int64, bool) {
	if s.state != stateOpen || !s.done {
		return 0, false
	}
	return int64(s.cache.Len()), true
}

// IsReadable reports whether the stream is open.
func (s *InputStream) IsReadable() bool { return s.state == stateOpen }

// IsWritable returns false.
func (s *InputStream) IsWritable() bool { return false }

// IsSeekable returns false.
func (s *InputStream) IsSeekable() bool { return false }

// Contents drains the source and returns the bytes not read before.
func (s *InputStream) Contents() ([]byte, error) {
	if err := s.state.err("contents"); err != nil {
		return nil, err
	}
	if s.done {
		return []byte{}, nil
	}
	start := s.cache.Len()
	_, err := s.cache.ReadFrom(s.r)
	s.done = err == nil
	rest := append([]byte(nil), s.cache.Bytes()[start:]...)
	return rest, err
}

// String drains the source and returns everything read, including bytes
// consumed by earlier Read calls.
func (s *InputStream) String() string {
	if s.state != stateOpen {
		return ""
	}
	if _, err := s.Contents(); err != nil {
		return ""
	}
	return s.cache.String()
}

// Close closes the source when it is an io.Closer. Closing twice returns an
// error matching ErrStreamClosed.
func (s *InputStream) Close() error {
	if err := s.state.err("close"); err != nil {
		return err
	}
	s.state = stateClosed
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Detach returns the source reader and leaves the stream unusable.
func (s *InputStream) Detach() any {
	if s.state != stateOpen {
		return nil
	}
	s.state = stateDetached
	r := s.r
	s.r = nil
	Logger().Debug().Str("resource", typeName(r)).Msg("stream detached")
	return r
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
