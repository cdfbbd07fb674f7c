package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesUnderBasePath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	key, n, err := store.Save(context.Background(), "uploads/abc/video.mp4", strings.NewReader("not really a video"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if key != "uploads/abc/video.mp4" {
		t.Errorf("key = %q", key)
	}
	if n != int64(len("not really a video")) {
		t.Errorf("bytes written = %d", n)
	}

	data, err := os.ReadFile(filepath.Join(dir, "uploads", "abc", "video.mp4"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "not really a video" {
		t.Errorf("content = %q", data)
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		want   string
		wantOK bool
	}{
		{name: "plain", key: "a/b.mp4", want: "a/b.mp4", wantOK: true},
		{name: "leading slash", key: "/a/b.mp4", want: "a/b.mp4", wantOK: true},
		{name: "dot slash", key: "./a.mp4", want: "a.mp4", wantOK: true},
		{name: "backslashes", key: "a\\b.mp4", want: "a/b.mp4", wantOK: true},
		{name: "traversal", key: "../../etc/passwd"},
		{name: "empty", key: "   "},
		{name: "dot only", key: "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeKey(tt.key)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("sanitizeKey(%q) error = %v", tt.key, err)
				}
				if got != tt.want {
					t.Errorf("sanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("sanitizeKey(%q) = %q, want error", tt.key, got)
			}
		})
	}
}
