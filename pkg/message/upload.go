package message

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

// UploadErrorCode is the outcome reported for an uploaded file.
type UploadErrorCode int

// Upload error codes. The value 5 is unassigned.
const (
	UploadErrOK        UploadErrorCode = 0
	UploadErrIniSize   UploadErrorCode = 1
	UploadErrFormSize  UploadErrorCode = 2
	UploadErrPartial   UploadErrorCode = 3
	UploadErrNoFile    UploadErrorCode = 4
	UploadErrNoTmpDir  UploadErrorCode = 6
	UploadErrCantWrite UploadErrorCode = 7
	UploadErrExtension UploadErrorCode = 8
)

var uploadErrorText = map[UploadErrorCode]string{
	UploadErrOK:        "ok",
	UploadErrIniSize:   "file exceeds the server size limit",
	UploadErrFormSize:  "file exceeds the form size limit",
	UploadErrPartial:   "file was only partially uploaded",
	UploadErrNoFile:    "no file was uploaded",
	UploadErrNoTmpDir:  "missing temporary directory",
	UploadErrCantWrite: "failed to write file to disk",
	UploadErrExtension: "upload stopped by extension",
}

// Valid reports whether c is one of the defined codes.
func (c UploadErrorCode) Valid() bool {
	_, ok := uploadErrorText[c]
	return ok
}

// String returns a description of the code.
func (c UploadErrorCode) String() string {
	if s, ok := uploadErrorText[c]; ok {
		return s
	}
	return fmt.Sprintf("upload error code %d", int(c))
}

// UploadOption configures an UploadedFile.
type UploadOption func(*UploadedFile)

// WithClientFilename sets the filename sent by the client.
func WithClientFilename(name string) UploadOption {
	return func(u *UploadedFile) { u.clientFilename = name }
}

// WithClientMediaType sets the media type sent by the client.
func WithClientMediaType(mediaType string) UploadOption {
	return func(u *UploadedFile) { u.clientMediaType = mediaType }
}

// WithFilesystem sets the filesystem the source path and move targets are
// resolved against. It defaults to Filesystem().
func WithFilesystem(fs afero.Fs) UploadOption {
	return func(u *UploadedFile) { u.fs = fs }
}

// UploadedFile is a file received in a multipart request. It starts pending
// and can be moved to its final location exactly once. UploadedFile is not
// safe for concurrent use.
type UploadedFile struct {
	stream          Stream
	ownStream       bool
	path            string
	fs              afero.Fs
	size            int64
	code            UploadErrorCode
	clientFilename  string
	clientMediaType string
	moved           bool
}

// NewUploadedFile creates a pending upload. source is a path string, a Stream
// or any resource accepted by NewFileStream; it is only checked when code is
// UploadErrOK. A negative size means unknown.
func NewUploadedFile(source any, size int64, code UploadErrorCode, opts ...UploadOption) (*UploadedFile, error) {
	if !code.Valid() {
		return nil, newError("new uploaded file", ErrInvalidArgument, "invalid upload error code %d", int(code))
	}

	u := &UploadedFile{size: size, code: code, fs: Filesystem()}
	for _, opt := range opts {
		opt(u)
	}
	if code != UploadErrOK {
		return u, nil
	}

	switch src := source.(type) {
	case string:
		if src == "" {
			return nil, newError("new uploaded file", ErrInvalidArgument, "empty source path")
		}
		u.path = src
	case Stream:
		u.stream = src
	case nil:
		return nil, newError("new uploaded file", ErrInvalidArgument, "missing source")
	default:
		st, err := NewFileStream(src)
		if err != nil {
			return nil, newError("new uploaded file", ErrInvalidArgument, "invalid source %T", source)
		}
		u.stream = st
	}
	return u, nil
}

func (u *UploadedFile) check(op string) error {
	if u.code != UploadErrOK {
		return newError(op, ErrUploadError, "%s", u.code)
	}
	if u.moved {
		return &Error{Op: op, Err: ErrAlreadyMoved}
	}
	return nil
}

// Stream returns the content of the upload, opening the source path on first
// use.
func (u *UploadedFile) Stream() (Stream, error) {
	if err := u.check("uploaded file stream"); err != nil {
		return nil, err
	}
	if u.stream == nil {
		st, err := OpenStream(u.fs, u.path, os.O_RDONLY)
		if err != nil {
			return nil, err
		}
		u.stream = st
		u.ownStream = true
	}
	return u.stream, nil
}

// MoveTo copies the upload to target and marks it moved. A path source is
// renamed when the filesystem allows it. When the copy fails the partial
// target is removed and the upload stays pending.
func (u *UploadedFile) MoveTo(target string) error {
	if err := u.check("move uploaded file"); err != nil {
		return err
	}
	if target == "" {
		return newError("move uploaded file", ErrInvalidArgument, "empty target path")
	}

	log := Logger().With().Str("target", target).Logger()

	if u.stream == nil {
		if err := u.fs.Rename(u.path, target); err == nil {
			u.moved = true
			log.Debug().Str("source", u.path).Msg("uploaded file renamed")
			return nil
		}
	}

	src, err := u.Stream()
	if err != nil {
		return err
	}
	if src.IsSeekable() {
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("message: move uploaded file: rewind source: %w", err)
		}
	}

	dst, err := u.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return newError("move uploaded file", ErrInvalidArgument, "%v", err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = u.fs.Remove(target)
		log.Debug().Err(err).Int64("written", n).Msg("uploaded file copy failed")
		return fmt.Errorf("message: move uploaded file to %q: %w", target, err)
	}

	u.moved = true
	if u.ownStream {
		_ = u.stream.Close()
		if u.path != "" {
			_ = u.fs.Remove(u.path)
		}
	}
	log.Debug().Int64("written", n).Msg("uploaded file moved")
	return nil
}

// Moved reports whether MoveTo has succeeded.
func (u *UploadedFile) Moved() bool { return u.moved }

// Size returns the declared size when it is known.
func (u *UploadedFile) Size() (int64, bool) {
	return u.size, u.size >= 0
}

// ErrorCode returns the upload outcome.
func (u *UploadedFile) ErrorCode() UploadErrorCode { return u.code }

// ClientFilename returns the filename sent by the client, or "".
func (u *UploadedFile) ClientFilename() string { return u.clientFilename }

// ClientMediaType returns the media type sent by the client, or "".
func (u *UploadedFile) ClientMediaType() string { return u.clientMediaType }

// ValidateUploadedFiles checks that every leaf of tree is an *UploadedFile.
// Branches are map[string]any, []any, map[string]*UploadedFile or
// []*UploadedFile.
func ValidateUploadedFiles(tree map[string]any) error {
	for key, v := range tree {
		if err := validateUploadNode(key, v); err != nil {
			return err
		}
	}
	return nil
}

func validateUploadNode(path string, v any) error {
	switch x := v.(type) {
	case *UploadedFile:
		if x == nil {
			return newError("validate uploaded files", ErrInvalidArgument, "nil leaf at %q", path)
		}
	case []*UploadedFile:
		for i, f := range x {
			if f == nil {
				return newError("validate uploaded files", ErrInvalidArgument, "nil leaf at %q", fmt.Sprintf("%s[%d]", path, i))
			}
		}
	case map[string]*UploadedFile:
		for k, f := range x {
			if f == nil {
				return newError("validate uploaded files", ErrInvalidArgument, "nil leaf at %q", path+"."+k)
			}
		}
	case map[string]any:
		for k, child := range x {
			if err := validateUploadNode(path+"."+k, child); err != nil {
				return err
			}
		}
	case []any:
		for i, child := range x {
			if err := validateUploadNode(fmt.Sprintf("%s[%d]", path, i), child); err != nil {
				return err
			}
		}
	default:
		return newError("validate uploaded files", ErrInvalidArgument, "invalid leaf %T at %q", v, path)
	}
	return nil
}
