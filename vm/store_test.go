package vm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := OpenSnapshotStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("OpenSnapshotStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	image := []byte("image-bytes")

	hash, err := s.Save("dev", image)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	sum := sha256.Sum256(image)
	if hash != hex.EncodeToString(sum[:]) {
		t.Errorf("Save returned %s, want the content's SHA-256", hash)
	}

	got, err := s.Load(hash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, image) {
		t.Error("loaded bytes differ from saved bytes")
	}
}

func TestSnapshotContentAddressing(t *testing.T) {
	s := openTestStore(t)
	image := []byte("same-content")

	h1, err := s.Save("first", image)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	h2, err := s.Save("second", image)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if h1 != h2 {
		t.Error("identical bytes must produce identical hashes")
	}

	// Re-saving replaced the row, so one snapshot exists with the newer name.
	infos, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("List returned %d rows, want 1", len(infos))
	}
	if infos[0].Name != "second" {
		t.Errorf("name = %q, want the most recent label", infos[0].Name)
	}
	if infos[0].Size != len(image) {
		t.Errorf("size = %d, want %d", infos[0].Size, len(image))
	}
}

func TestSnapshotLoadByName(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Save("dev", []byte("v1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Save("dev", []byte("v2")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.LoadByName("dev")
	if err != nil {
		t.Fatalf("LoadByName: %v", err)
	}
	if !bytes.Equal(got, []byte("v2")) {
		t.Errorf("LoadByName = %q, want the newest image", got)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load("deadbeef"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load(unknown) = %v, want ErrSnapshotNotFound", err)
	}
	if _, err := s.LoadByName("nope"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadByName(unknown) = %v, want ErrSnapshotNotFound", err)
	}
	if err := s.Delete("deadbeef"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Delete(unknown) = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshotDelete(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.Save("gone", []byte("bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(hash); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(hash); !errors.Is(err, ErrSnapshotNotFound) {
		t.Error("deleted snapshot should not load")
	}
}

func TestSnapshotImageRoundTrip(t *testing.T) {
	s := openTestStore(t)
	data := buildTestImage(t)

	hash, err := s.Save("heap", data)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	stored, err := s.Load(hash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	h := NewHeap()
	img, err := h.LoadImage(stored)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if img.Entry == nil {
		t.Error("image loaded from the store should keep its entry")
	}
}
