package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestSniffImageAcceptsPNG(t *testing.T) {
	contentType, body, err := SniffImage(bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("SniffImage: %v", err)
	}
	if contentType != "image/png" {
		t.Fatalf("expected image/png, got %q", contentType)
	}
	all, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("io.ReadAll: %v", err)
	}
	if !bytes.Equal(all, pngHeader) {
		t.Fatalf("sniffing must not consume the body")
	}
}

func TestSniffImageRejectsText(t *testing.T) {
	_, _, err := SniffImage(strings.NewReader("plain text content"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}

	_, _, err = SniffImage(strings.NewReader(""))
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
}

func TestSniffImageKeepsLongBodies(t *testing.T) {
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0xAB}, 10000)...)
	_, body, err := SniffImage(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("SniffImage: %v", err)
	}
	all, _ := io.ReadAll(body)
	if len(all) != len(payload) {
		t.Fatalf("expected %d bytes, got %d", len(payload), len(all))
	}
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	cases := map[string]string{
		"me.png":               "me.png",
		"../../etc/passwd":     "passwd",
		`C:\photos\my pic.jpg`: "my_pic.jpg",
		"":                     "file",
		"..":                   "file",
	}
	for in, want := range cases {
		got := ObjectName(now, in)
		parts := strings.SplitN(got, "-", 3)
		if len(parts) != 3 || parts[0] != "1700000000123" || len(parts[1]) != 8 || parts[2] != want {
			t.Errorf("ObjectName(%q) = %q, want 1700000000123-<tag>-%s", in, got, want)
		}
	}
}

func TestObjectNameIsUniqueWithinAMillisecond(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		name := ObjectName(now, "me.png")
		if seen[name] {
			t.Fatalf("duplicate object name %q", name)
		}
		seen[name] = true
	}
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:3000/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store.now = func() time.Time { return time.UnixMilli(42) }

	ref, err := SaveImage(context.Background(), store, Upload{Filename: "avatar.png", Body: bytes.NewReader(pngHeader)})
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasPrefix(ref, "uploads/42-") || !strings.HasSuffix(ref, "-avatar.png") {
		t.Fatalf("unexpected reference %q", ref)
	}

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(ref, "uploads/")))
	if err != nil {
		t.Fatalf("os.ReadFile: %v", err)
	}
	if !bytes.Equal(stored, pngHeader) {
		t.Fatalf("stored content differs")
	}

	if got := store.URL(ref); got != "http://localhost:3000/"+ref {
		t.Fatalf("unexpected url %q", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}
}

func TestLocalStoreSameNameSameMillisecond(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:3000")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	store.now = func() time.Time { return time.UnixMilli(1700000000000) }
	ctx := context.Background()

	first, err := store.Save(ctx, Upload{Filename: "me.png", Body: strings.NewReader("AAAA")})
	if err != nil {
		t.Fatalf("Save first: %v", err)
	}
	second, err := store.Save(ctx, Upload{Filename: "me.png", Body: strings.NewReader("BBBB")})
	if err != nil {
		t.Fatalf("Save second: %v", err)
	}
	if first == second {
		t.Fatalf("both uploads stored as %q", first)
	}

	for ref, want := range map[string]string{first: "AAAA", second: "BBBB"} {
		got, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(ref, "uploads/")))
		if err != nil {
			t.Fatalf("os.ReadFile(%s): %v", ref, err)
		}
		if string(got) != want {
			t.Fatalf("%s holds %q, want %q", ref, got, want)
		}
	}
}

func TestLocalStoreRejectsNonImage(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:3000")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	_, err = SaveImage(context.Background(), store, Upload{Filename: "notes.txt", Body: strings.NewReader("hello")})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestJoinURL(t *testing.T) {
	if got := JoinURL("http://h/", "/uploads/a.png"); got != "http://h/uploads/a.png" {
		t.Fatalf("unexpected %q", got)
	}
	if got := JoinURL("http://h", "https://cdn/x.png"); got != "https://cdn/x.png" {
		t.Fatalf("absolute references must pass through, got %q", got)
	}
}

func TestLocalStoreDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:3000")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	ref, err := store.Save(ctx, Upload{Filename: "me.png", Body: bytes.NewReader(pngHeader)})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected empty directory, have %d entries", len(entries))
	}
	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete of a missing file: %v", err)
	}
}
