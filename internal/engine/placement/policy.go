// Package placement validates finished HTTP responses and moves their
// downloaded bodies into the downloads folder.
package placement

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/djyunz/SBSample/internal/engine/types"
)

// sniffLen is how much of a file content sniffing reads
const sniffLen = 8192

// Policy places downloaded files under Root/Subfolder
type Policy struct {
	Fs        afero.Fs
	Root      string
	Subfolder string

	// SniffContent derives an extension from the file contents when the
	// response declares no MIME type.
	SniffContent bool
}

// NewPolicy returns a policy on the OS file system
func NewPolicy(root, subfolder string, sniff bool) *Policy {
	return &Policy{
		Fs:           afero.NewOsFs(),
		Root:         root,
		Subfolder:    subfolder,
		SniffContent: sniff,
	}
}

func (p *Policy) fs() afero.Fs {
	if p.Fs == nil {
		return afero.NewOsFs()
	}
	return p.Fs
}

// DestinationDir is the folder placed files end up in
func (p *Policy) DestinationDir() string {
	sub := p.Subfolder
	if sub == "" {
		sub = types.DefaultSubfolder
	}
	return filepath.Join(p.Root, sub)
}

// Validate checks resp before its body is kept. expectedContentType may be empty.
func (p *Policy) Validate(resp *http.Response, expectedContentType string) error {
	if resp == nil || resp.StatusCode == 0 {
		return ErrNotHTTPResponse
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusCodeError{StatusCode: resp.StatusCode}
	}
	if resp.ContentLength == 0 {
		return ErrZeroContentLength
	}
	if expectedContentType != "" {
		actual := resp.Header.Get("Content-Type")
		if actual != "" && !strings.Contains(strings.ToLower(actual), strings.ToLower(expectedContentType)) {
			return &ContentTypeMismatchError{Expected: expectedContentType, Actual: actual}
		}
	}
	return nil
}

// Filename derives the destination file name for resp. A name without
// extension gets the one of the declared MIME type.
func (p *Policy) Filename(resp *http.Response, tempPath string) string {
	name := SuggestedFilename(resp)
	if hasExtension(name) {
		return name
	}

	if mediaType := MediaType(resp); mediaType != "" {
		return name + ExtensionForMIME(mediaType)
	}
	if p.SniffContent && tempPath != "" {
		return name + p.sniffExtension(tempPath)
	}
	return name
}

func (p *Policy) sniffExtension(path string) string {
	f, err := p.fs().Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ""
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return "." + kind.Extension
}

// Place validates resp and moves the file at tempPath into DestinationDir,
// replacing a file of the same name. It returns the destination path.
func (p *Policy) Place(tempPath string, resp *http.Response, expectedContentType string) (string, error) {
	if err := p.Validate(resp, expectedContentType); err != nil {
		return "", err
	}

	afs := p.fs()
	dir := p.DestinationDir()
	if err := afs.MkdirAll(dir, 0o755); err != nil {
		return "", &PlacementError{Op: "mkdir", Path: dir, Err: err}
	}

	dest := filepath.Join(dir, p.Filename(resp, tempPath))

	if _, err := afs.Stat(dest); err == nil {
		if err := afs.Remove(dest); err != nil {
			return "", &PlacementError{Op: "remove", Path: dest, Err: err}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", &PlacementError{Op: "stat", Path: dest, Err: err}
	}

	if err := p.move(tempPath, dest); err != nil {
		return "", &PlacementError{Op: "move", Path: dest, Err: err}
	}
	return dest, nil
}

func (p *Policy) move(src, dst string) error {
	afs := p.fs()
	err := afs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	// Fallback: copy if rename fails (cross-device)
	if copyErr := copyFile(afs, src, dst); copyErr != nil {
		_ = afs.Remove(dst)
		return copyErr
	}
	return afs.Remove(src)
}

// copyFile copies a file from src to dst (fallback when rename fails)
func copyFile(afs afero.Fs, src, dst string) error {
	in, err := afs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := afs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	buf := make([]byte, 1024*1024)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
