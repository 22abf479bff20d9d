package placement

import (
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	ftypes "github.com/h2non/filetype/types"
	"github.com/vfaronov/httpheader"
)

// preferredExtensions maps MIME types whose stdlib extension list is
// platform-dependent (alphabetical order) to the canonical extension.
var preferredExtensions = map[string]string{
	"application/pdf":          ".pdf",
	"text/html":                ".html",
	"text/plain":               ".txt",
	"text/xml":                 ".xml",
	"application/json":         ".json",
	"application/xhtml+xml":    ".xhtml",
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/svg+xml":            ".svg",
	"audio/mpeg":               ".mp3",
	"video/mp4":                ".mp4",
	"application/zip":          ".zip",
	"application/octet-stream": ".bin",
}

// MediaType returns the bare MIME type the response declares, or "".
// Example: "Application/PDF; charset=binary" -> "application/pdf"
func MediaType(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	raw := resp.Header.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		// Keep the part before any parameters
		mediaType = strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
	}
	return strings.ToLower(mediaType)
}

// ExtensionForMIME returns the extension (with dot) customarily used for
// mimeType, or "" when none is known.
func ExtensionForMIME(mimeType string) string {
	if mimeType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || mediaType == "" {
		return ""
	}
	mediaType = strings.ToLower(mediaType)

	if ext, ok := preferredExtensions[mediaType]; ok {
		return ext
	}

	// filetype's matcher registry knows many binary formats by MIME
	var matches []string
	if filetype.IsMIMESupported(mediaType) {
		ftypes.Types.Range(func(k, v any) bool {
			if t, ok := v.(ftypes.Type); ok && t.MIME.Value == mediaType {
				matches = append(matches, k.(string))
			}
			return true
		})
	}
	if len(matches) > 0 {
		sort.Strings(matches)
		return "." + matches[0]
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// SuggestedFilename returns the name the server suggests for the body:
// the Content-Disposition filename, else the last segment of the response
// URL, else a random unique name.
func SuggestedFilename(resp *http.Response) string {
	if resp != nil {
		if _, name, _ := httpheader.ContentDisposition(resp.Header); name != "" {
			if clean := SanitizeFilename(name); clean != "" {
				return clean
			}
		}
		if resp.Request != nil && resp.Request.URL != nil {
			if clean := SanitizeFilename(path.Base(resp.Request.URL.Path)); clean != "" {
				return clean
			}
		}
	}
	return uuid.NewString()
}

// SanitizeFilename reduces name to a single path element. It returns ""
// when nothing usable is left.
func SanitizeFilename(name string) string {
	// Normalize Windows-style separators to forward slashes.
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(name, "\x00", "")

	// Get only the base name (removes any directory components).
	clean := strings.TrimSpace(path.Base(name))

	if clean == "." || clean == ".." || clean == "/" || clean == "" {
		return ""
	}
	return filepath.Clean(clean)
}

// hasExtension reports whether name ends in a dot-suffix
func hasExtension(name string) bool {
	ext := filepath.Ext(name)
	return ext != "" && ext != name && ext != "."
}
