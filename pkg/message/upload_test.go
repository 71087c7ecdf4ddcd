package message

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/spf13/afero"
)

func newMemUpload(t *testing.T, content string) (*UploadedFile, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/tmp/php123", []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	u, err := NewUploadedFile("/tmp/php123", int64(len(content)), UploadErrOK,
		WithFilesystem(fs), WithClientFilename("report.pdf"), WithClientMediaType("application/pdf"))
	if err != nil {
		t.Fatalf("NewUploadedFile() error = %v", err)
	}
	return u, fs
}

func TestUploadErrorCode_Valid(t *testing.T) {
	for code := UploadErrorCode(-1); code <= 9; code++ {
		want := code >= 0 && code <= 8 && code != 5
		if got := code.Valid(); got != want {
			t.Errorf("UploadErrorCode(%d).Valid() = %v, want %v", code, got, want)
		}
	}
}

func TestNewUploadedFile_Validation(t *testing.T) {
	tests := []struct {
		name   string
		source any
		code   UploadErrorCode
		ok     bool
	}{
		{"path", "/tmp/upload", UploadErrOK, true},
		{"stream", mustTemp(t), UploadErrOK, true},
		{"reader", strings.NewReader("x"), UploadErrOK, true},
		{"empty path", "", UploadErrOK, false},
		{"nil source", nil, UploadErrOK, false},
		{"bad source", 12, UploadErrOK, false},
		{"invalid code", "/tmp/upload", UploadErrorCode(5), false},
		{"out of range code", "/tmp/upload", UploadErrorCode(42), false},
		{"bad source ignored on error", 12, UploadErrPartial, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUploadedFile(tt.source, 1, tt.code)
			if tt.ok && err != nil {
				t.Errorf("NewUploadedFile() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("NewUploadedFile() err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestUploadedFile_Metadata(t *testing.T) {
	u, _ := newMemUpload(t, "data")
	if size, ok := u.Size(); !ok || size != 4 {
		t.Errorf("Size() = %d, %v", size, ok)
	}
	if u.ErrorCode() != UploadErrOK {
		t.Errorf("ErrorCode() = %v", u.ErrorCode())
	}
	if u.ClientFilename() != "report.pdf" || u.ClientMediaType() != "application/pdf" {
		t.Errorf("client metadata = %q, %q", u.ClientFilename(), u.ClientMediaType())
	}

	unknown, _ := NewUploadedFile("/x", -1, UploadErrOK)
	if _, ok := unknown.Size(); ok {
		t.Error("negative size should be unknown")
	}
}

func TestUploadedFile_StreamFromPath(t *testing.T) {
	u, _ := newMemUpload(t, "payload")
	s, err := u.Stream()
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if got := s.String(); got != "payload" {
		t.Errorf("String() = %q", got)
	}
	again, _ := u.Stream()
	if again != s {
		t.Error("Stream() should return the same stream on repeated calls")
	}
}

func TestUploadedFile_MoveToRenamesPath(t *testing.T) {
	u, fs := newMemUpload(t, "payload")

	if err := u.MoveTo("/uploads/final.pdf"); err != nil {
		t.Fatalf("MoveTo() error = %v", err)
	}
	if !u.Moved() {
		t.Error("Moved() = false after MoveTo")
	}
	got, err := afero.ReadFile(fs, "/uploads/final.pdf")
	if err != nil || string(got) != "payload" {
		t.Errorf("target = %q, %v", got, err)
	}
	if ok, _ := afero.Exists(fs, "/tmp/php123"); ok {
		t.Error("source path should be gone after move")
	}

	if err := u.MoveTo("/uploads/other.pdf"); !errors.Is(err, ErrAlreadyMoved) {
		t.Errorf("second MoveTo() err = %v, want ErrAlreadyMoved", err)
	}
	if _, err := u.Stream(); !errors.Is(err, ErrAlreadyMoved) {
		t.Errorf("Stream() after move err = %v, want ErrAlreadyMoved", err)
	}
}

func TestUploadedFile_MoveToCopiesStream(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := mustTemp(t)
	io.WriteString(src, "streamed")

	u, err := NewUploadedFile(src, 8, UploadErrOK, WithFilesystem(fs))
	if err != nil {
		t.Fatalf("NewUploadedFile() error = %v", err)
	}
	if err := u.MoveTo("/target"); err != nil {
		t.Fatalf("MoveTo() error = %v", err)
	}
	got, _ := afero.ReadFile(fs, "/target")
	if string(got) != "streamed" {
		t.Errorf("target = %q, want streamed", got)
	}
	if !src.IsReadable() {
		t.Error("caller-provided stream should stay open")
	}
}

func TestUploadedFile_MoveToCopyFailureStaysPending(t *testing.T) {
	fs := afero.NewMemMapFs()
	boom := errors.New("disk on fire")
	u, err := NewUploadedFile(iotest.ErrReader(boom), -1, UploadErrOK, WithFilesystem(fs))
	if err != nil {
		t.Fatalf("NewUploadedFile() error = %v", err)
	}

	err = u.MoveTo("/target")
	if !errors.Is(err, boom) {
		t.Fatalf("MoveTo() err = %v, want wrapped copy error", err)
	}
	if u.Moved() {
		t.Error("failed copy must leave the upload pending")
	}
	if ok, _ := afero.Exists(fs, "/target"); ok {
		t.Error("partial target should be removed")
	}
	if _, err := u.Stream(); err != nil {
		t.Errorf("Stream() after failed move err = %v, want nil", err)
	}
}

func TestUploadedFile_MoveToEmptyTarget(t *testing.T) {
	u, _ := newMemUpload(t, "x")
	if err := u.MoveTo(""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("MoveTo(\"\") err = %v, want ErrInvalidArgument", err)
	}
	if u.Moved() {
		t.Error("Moved() = true after rejected MoveTo")
	}
}

func TestUploadedFile_NonOKCode(t *testing.T) {
	codes := []UploadErrorCode{
		UploadErrIniSize, UploadErrFormSize, UploadErrPartial, UploadErrNoFile,
		UploadErrNoTmpDir, UploadErrCantWrite, UploadErrExtension,
	}
	for _, code := range codes {
		t.Run(code.String(), func(t *testing.T) {
			u, err := NewUploadedFile(mustTemp(t), 0, code)
			if err != nil {
				t.Fatalf("NewUploadedFile() error = %v", err)
			}
			if _, err := u.Stream(); !errors.Is(err, ErrUploadError) {
				t.Errorf("Stream() err = %v, want ErrUploadError", err)
			}
			if err := u.MoveTo("/anywhere"); !errors.Is(err, ErrUploadError) {
				t.Errorf("MoveTo() err = %v, want ErrUploadError", err)
			}
			if err := u.MoveTo(""); !errors.Is(err, ErrUploadError) {
				t.Errorf("MoveTo(\"\") err = %v, want ErrUploadError", err)
			}
		})
	}
}

func TestValidateUploadedFiles(t *testing.T) {
	f, _ := NewUploadedFile("/tmp/a", 1, UploadErrOK)

	tests := []struct {
		name string
		tree map[string]any
		ok   bool
	}{
		{"empty", map[string]any{}, true},
		{"flat", map[string]any{"avatar": f}, true},
		{"nested", map[string]any{"docs": map[string]any{"a": f, "b": []any{f, f}}}, true},
		{"typed slices", map[string]any{"a": []*UploadedFile{f}, "b": map[string]*UploadedFile{"x": f}}, true},
		{"string leaf", map[string]any{"avatar": "file.png"}, false},
		{"nil leaf", map[string]any{"avatar": nil}, false},
		{"nil pointer", map[string]any{"avatar": (*UploadedFile)(nil)}, false},
		{"deep bad leaf", map[string]any{"docs": []any{f, map[string]any{"x": 1}}}, false},
		{"nil in typed slice", map[string]any{"a": []*UploadedFile{nil}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUploadedFiles(tt.tree)
			if tt.ok && err != nil {
				t.Errorf("ValidateUploadedFiles() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ValidateUploadedFiles() err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func mustTemp(t *testing.T) *FileStream {
	t.Helper()
	s, err := NewTempStream()
	if err != nil {
		t.Fatalf("NewTempStream() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
