package utils

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseDownloadURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https pdf", url: "https://x/y.pdf"},
		{name: "http with port", url: "http://127.0.0.1:8080/files/a.bin"},
		{name: "surrounding spaces", url: "  https://example.com/a  "},
		{name: "empty", url: "", wantErr: true},
		{name: "relative path", url: "/download/a.pdf", wantErr: true},
		{name: "missing scheme", url: "example.com/a.pdf", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/a.pdf", wantErr: true},
		{name: "no host", url: "https:///a.pdf", wantErr: true},
		{name: "garbage", url: "://invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDownloadURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDownloadURL(%q) expected error but got %v", tt.url, got)
					return
				}
				if !errors.Is(err, ErrMalformedURL) {
					t.Errorf("ParseDownloadURL(%q) error %v does not wrap ErrMalformedURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseDownloadURL(%q) unexpected error: %v", tt.url, err)
				return
			}
			if !got.IsAbs() {
				t.Errorf("ParseDownloadURL(%q) = %v, want absolute", tt.url, got)
			}
		})
	}
}

func TestContentTypeForURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://x/y.pdf", "application/pdf"},
		{"https://x/Y.PDF", "application/pdf"},
		{"https://x/photo.jpg", "image/jpeg"},
		{"https://x/photo.jpeg?size=large", "image/jpeg"},
		{"https://x/icon.png", "image/png"},
		{"https://x/archive.zip", ""},
		{"https://x/download/", ""},
		{"https://x/firsthand/download.do?id=3", ""},
	}

	for _, tt := range tests {
		u, err := url.Parse(tt.url)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.url, err)
		}
		if got := ContentTypeForURL(u); got != tt.expected {
			t.Errorf("ContentTypeForURL(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}

	if got := ContentTypeForURL(nil); got != "" {
		t.Errorf("ContentTypeForURL(nil) = %q, want empty", got)
	}
}

func TestShouldIntercept(t *testing.T) {
	patterns := []string{"firsthand/download.do", "/download/"}

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://corp.example.com/firsthand/download.do?fileId=9", true},
		{"https://example.com/download/report", true},
		{"https://example.com/downloads", false},
		{"https://example.com/index.html", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ShouldIntercept(tt.url, patterns); got != tt.expected {
			t.Errorf("ShouldIntercept(%q) = %v, want %v", tt.url, got, tt.expected)
		}
	}

	if ShouldIntercept("https://example.com/download/x", []string{""}) {
		t.Error("empty pattern must not match everything")
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := FormatBytes(-1); got != "?" {
		t.Errorf("FormatBytes(-1) = %q", got)
	}
	if got := FormatBytes(1024); got != "1.0 KiB" {
		t.Errorf("FormatBytes(1024) = %q", got)
	}
	if got := FormatPercent(0.5); got != " 50%" {
		t.Errorf("FormatPercent(0.5) = %q", got)
	}
	if got := FormatPercent(3); got != "100%" {
		t.Errorf("FormatPercent(3) = %q", got)
	}
	if got := FormatAge(0); got != "-" {
		t.Errorf("FormatAge(0) = %q", got)
	}
}
