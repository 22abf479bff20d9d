package placement

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/home/user/Documents"

func response(status int, contentType, disposition, rawURL string, length int64) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if disposition != "" {
		h.Set("Content-Disposition", disposition)
	}
	resp := &http.Response{StatusCode: status, Header: h, ContentLength: length}
	if rawURL != "" {
		u, _ := url.Parse(rawURL)
		resp.Request = &http.Request{Method: http.MethodGet, URL: u}
	}
	return resp
}

func newMemPolicy(t *testing.T) (*Policy, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return &Policy{Fs: fs, Root: root, Subfolder: "MyDownloads"}, fs
}

func writeTemp(t *testing.T, fs afero.Fs, name, content string) string {
	t.Helper()
	path := filepath.Join("/tmp", name)
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	return path
}

func TestValidate_StatusCodeBoundaries(t *testing.T) {
	p, _ := newMemPolicy(t)

	tests := []struct {
		status int
		ok     bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{300, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		err := p.Validate(response(tt.status, "", "", "", 10), "")
		if tt.ok {
			assert.NoError(t, err, "status %d", tt.status)
			continue
		}
		var statusErr *StatusCodeError
		require.ErrorAs(t, err, &statusErr, "status %d", tt.status)
		assert.Equal(t, tt.status, statusErr.StatusCode)
	}
}

func TestValidate_StatusCodeMessage(t *testing.T) {
	p, _ := newMemPolicy(t)
	err := p.Validate(response(404, "", "", "", 10), "")
	assert.EqualError(t, err, "unexpected status code: 404")
}

func TestValidate_ContentType(t *testing.T) {
	p, _ := newMemPolicy(t)

	tests := []struct {
		name     string
		actual   string
		expected string
		ok       bool
	}{
		{"json vs pdf", "application/json", "application/pdf", false},
		{"pdf with params", "application/pdf; charset=binary", "application/pdf", true},
		{"exact", "image/png", "image/png", true},
		{"case insensitive", "Application/PDF", "application/pdf", true},
		{"no declared type", "", "application/pdf", true},
		{"nothing expected", "text/html", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Validate(response(200, tt.actual, "", "", 10), tt.expected)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var mismatch *ContentTypeMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.expected, mismatch.Expected)
			assert.Equal(t, tt.actual, mismatch.Actual)
		})
	}
}

func TestValidate_ContentLengthAndNil(t *testing.T) {
	p, _ := newMemPolicy(t)

	assert.ErrorIs(t, p.Validate(response(200, "", "", "", 0), ""), ErrZeroContentLength)
	assert.NoError(t, p.Validate(response(200, "", "", "", -1), ""), "unknown length passes")
	assert.ErrorIs(t, p.Validate(nil, ""), ErrNotHTTPResponse)
	assert.ErrorIs(t, p.Validate(&http.Response{}, ""), ErrNotHTTPResponse)
}

func TestFilename(t *testing.T) {
	p, _ := newMemPolicy(t)

	tests := []struct {
		name string
		resp *http.Response
		want string
	}{
		{
			name: "suggested name gets mime extension",
			resp: response(200, "application/pdf", `attachment; filename="report"`, "https://x/download.do", 10),
			want: "report.pdf",
		},
		{
			name: "extension kept",
			resp: response(200, "application/pdf", `attachment; filename="report.pdf"`, "https://x/a", 10),
			want: "report.pdf",
		},
		{
			name: "mismatching extension kept",
			resp: response(200, "image/png", `attachment; filename="scan.pdf"`, "https://x/a", 10),
			want: "scan.pdf",
		},
		{
			name: "url last segment",
			resp: response(200, "application/pdf", "", "https://x/y.pdf", 10),
			want: "y.pdf",
		},
		{
			name: "url segment without extension",
			resp: response(200, "image/jpeg", "", "https://x/photos/123", 10),
			want: "123.jpg",
		},
		{
			name: "no mime no extension",
			resp: response(200, "", "", "https://x/files/readme", 10),
			want: "readme",
		},
		{
			name: "traversal stripped",
			resp: response(200, "", `attachment; filename="../../etc/passwd"`, "https://x/a", 10),
			want: "passwd",
		},
		{
			name: "windows separators stripped",
			resp: response(200, "", `attachment; filename="C:\\temp\\evil.exe"`, "https://x/a", 10),
			want: "evil.exe",
		},
		{
			name: "rfc 8187 filename",
			resp: response(200, "", `attachment; filename*=UTF-8''r%C3%A9sum%C3%A9.pdf`, "https://x/a", 10),
			want: "résumé.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Filename(tt.resp, ""))
		})
	}
}

func TestFilename_UniqueFallback(t *testing.T) {
	p, _ := newMemPolicy(t)

	resp := response(200, "application/pdf", "", "https://x/", 10)
	a := p.Filename(resp, "")
	b := p.Filename(resp, "")

	assert.NotEqual(t, a, b)
	assert.Equal(t, ".pdf", filepath.Ext(a))
	assert.Len(t, a, 36+len(".pdf"))
}

func TestFilename_Sniffing(t *testing.T) {
	p, fs := newMemPolicy(t)
	tmp := writeTemp(t, fs, "body.tmp", "%PDF-1.4\n%âãÏÓ\n1 0 obj\n")
	resp := response(200, "", "", "https://x/files/doc", 10)

	assert.Equal(t, "doc", p.Filename(resp, tmp), "sniffing is opt-in")

	p.SniffContent = true
	assert.Equal(t, "doc.pdf", p.Filename(resp, tmp))

	// A declared MIME type wins over the content
	resp.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, "doc.txt", p.Filename(resp, tmp))
}

func TestExtensionForMIME(t *testing.T) {
	tests := map[string]string{
		"application/pdf":                 ".pdf",
		"application/pdf; charset=binary": ".pdf",
		"image/jpeg":                      ".jpg",
		"image/png":                       ".png",
		"image/webp":                      ".webp",
		"application/octet-stream":        ".bin",
		"":                                "",
		"not a mime":                      "",
		"application/x-made-up":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtensionForMIME(in), "mime %q", in)
	}
}

func TestExtensionForMIME_MatcherRegistry(t *testing.T) {
	// Neither preferred nor reliably known to the stdlib table
	tests := map[string]string{
		"application/x-7z-compressed": ".7z",
		"audio/x-flac":                ".flac",
		"image/webp; q=1":             ".webp",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtensionForMIME(in), "mime %q", in)
	}
}

func TestPlace_MovesIntoDownloads(t *testing.T) {
	p, fs := newMemPolicy(t)
	tmp := writeTemp(t, fs, "a.tmp", "hello pdf")

	dest, err := p.Place(tmp, response(200, "application/pdf", "", "https://x/y.pdf", 9), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "MyDownloads", "y.pdf"), dest)
	data, err := afero.ReadFile(fs, dest)
	require.NoError(t, err)
	assert.Equal(t, "hello pdf", string(data))

	exists, _ := afero.Exists(fs, tmp)
	assert.False(t, exists, "temp file must be moved, not copied")
}

func TestPlace_Overwrites(t *testing.T) {
	p, fs := newMemPolicy(t)
	resp := response(200, "application/pdf", "", "https://x/y.pdf", 5)

	first, err := p.Place(writeTemp(t, fs, "1.tmp", "first"), resp, "")
	require.NoError(t, err)
	second, err := p.Place(writeTemp(t, fs, "2.tmp", "second"), resp, "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	data, err := afero.ReadFile(fs, second)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := afero.ReadDir(fs, p.DestinationDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no versioned copies")
}

func TestPlace_DirectoryAlreadyExists(t *testing.T) {
	p, fs := newMemPolicy(t)
	require.NoError(t, fs.MkdirAll(p.DestinationDir(), 0o755))

	_, err := p.Place(writeTemp(t, fs, "a.tmp", "x"), response(200, "", "", "https://x/a.bin", 1), "")
	assert.NoError(t, err)
}

func TestPlace_ValidationFailureLeavesDestinationAlone(t *testing.T) {
	p, fs := newMemPolicy(t)
	tmp := writeTemp(t, fs, "a.tmp", "not found page")

	_, err := p.Place(tmp, response(404, "text/html", "", "https://x/missing.pdf", 14), "application/pdf")
	var statusErr *StatusCodeError
	require.ErrorAs(t, err, &statusErr)

	exists, _ := afero.DirExists(fs, p.DestinationDir())
	assert.False(t, exists)
}

func TestPlace_FilesystemError(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/tmp/a.tmp", []byte("x"), 0o644))
	p := &Policy{Fs: afero.NewReadOnlyFs(mem), Root: root, Subfolder: "MyDownloads"}

	_, err := p.Place("/tmp/a.tmp", response(200, "", "", "https://x/a.bin", 1), "")
	var placeErr *PlacementError
	require.ErrorAs(t, err, &placeErr)
	assert.Equal(t, "mkdir", placeErr.Op)
	assert.Equal(t, KindFilesystem, KindOf(err))
}

func TestPlace_MissingTempFile(t *testing.T) {
	p, _ := newMemPolicy(t)

	_, err := p.Place("/tmp/gone.tmp", response(200, "", "", "https://x/a.bin", 1), "")
	var placeErr *PlacementError
	require.ErrorAs(t, err, &placeErr)
	assert.Equal(t, "move", placeErr.Op)
}

func TestDestinationDir_DefaultSubfolder(t *testing.T) {
	p := &Policy{Root: "/r"}
	assert.Equal(t, filepath.Join("/r", "MyDownloads"), p.DestinationDir())
}

func TestCopyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src", []byte("payload"), 0o644))
	require.NoError(t, copyFile(fs, "/src", "/dst"))

	data, err := afero.ReadFile(fs, "/dst")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	assert.Error(t, copyFile(fs, "/nope", "/dst2"))
}
