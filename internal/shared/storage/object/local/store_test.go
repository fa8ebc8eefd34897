package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photo-speech/internal/shared/storage/object"
)

func TestPutOpenDelete(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir(), "photos", "http://localhost:8080")
	ctx := context.Background()

	obj, err := store.Put(ctx, "audio/cat-1.mp3", "audio/mpeg", strings.NewReader("ID3 audio"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if obj.SizeBytes != int64(len("ID3 audio")) {
		t.Fatalf("expected size %d, got %d", len("ID3 audio"), obj.SizeBytes)
	}
	if obj.PublicURL != "http://localhost:8080/media/audio/cat-1.mp3" {
		t.Fatalf("unexpected public url: %s", obj.PublicURL)
	}

	rc, err := store.Open(ctx, "audio/cat-1.mp3")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "ID3 audio" {
		t.Fatalf("unexpected content: %q", data)
	}

	if err := store.Delete(ctx, "audio/cat-1.mp3"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Open(ctx, "audio/cat-1.mp3"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "audio/cat-1.mp3"); err != nil {
		t.Fatalf("expected deleting a missing object to succeed, got %v", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir(), "photos", "http://localhost:8080")
	ctx := context.Background()

	if _, err := store.Put(ctx, "cat.jpg", "image/jpeg", strings.NewReader("first")); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if _, err := store.Put(ctx, "cat.jpg", "image/jpeg", strings.NewReader("second")); err != nil {
		t.Fatalf("put second: %v", err)
	}
	rc, err := store.Open(ctx, "cat.jpg")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Fatalf("expected last write to win, got %q", data)
	}
}

func TestRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := New(t.TempDir(), "photos", "http://localhost:8080")
	if _, err := store.Put(context.Background(), "../escape.jpg", "image/jpeg", strings.NewReader("x")); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if _, err := store.Open(context.Background(), "../../etc/passwd"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestOpenReturnsRecordedContentType(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir, "photos", "http://localhost:8080")
	ctx := context.Background()

	if _, err := store.Put(ctx, "evil.html", "image/png", strings.NewReader("<script>x</script>")); err != nil {
		t.Fatalf("put: %v", err)
	}
	rc, err := store.Open(ctx, "evil.html")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rc.Close()
	if rc.ContentType != "image/png" {
		t.Fatalf("expected recorded image/png, got %q", rc.ContentType)
	}

	if err := store.Delete(ctx, "evil.html"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".meta", "photos", "evil.html")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected content type sidecar to be removed, got %v", err)
	}
}

func TestOpenSniffsObjectsWithoutSidecar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir, "photos", "http://localhost:8080")
	if err := os.MkdirAll(filepath.Join(dir, "photos"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "photos", "page.png"), []byte("<html><body>hi</body></html>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rc, err := store.Open(context.Background(), "page.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	if !strings.HasPrefix(rc.ContentType, "text/html") {
		t.Fatalf("expected sniffed text/html, got %q", rc.ContentType)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "<html><body>hi</body></html>" {
		t.Fatalf("unexpected content: %q", data)
	}
}
