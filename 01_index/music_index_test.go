package index

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTrack(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("mp3"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuild(t *testing.T) {
	root := t.TempDir()
	writeTrack(t, root, "inception/a.mp3")
	writeTrack(t, root, "interstellar/deep/b.MP3")
	writeTrack(t, root, "loose.mp3")
	writeTrack(t, root, "inception/notes.txt")

	idx, err := Build(root)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(idx.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(idx.Tracks))
	}

	byPath := map[string]string{}
	for _, tr := range idx.Tracks {
		byPath[tr.Path] = tr.Folder
		if len(tr.ID) != 12 {
			t.Fatalf("track id %q is not 12 chars", tr.ID)
		}
	}
	if byPath["inception/a.mp3"] != "inception" {
		t.Fatalf("wrong folder tag: %v", byPath)
	}
	if byPath["interstellar/deep/b.MP3"] != "interstellar" {
		t.Fatal("nested track must tag with the first path component")
	}
	if byPath["loose.mp3"] != "" {
		t.Fatal("root-level track must have an empty folder tag")
	}
}

func TestBuildEmptyRoot(t *testing.T) {
	if _, err := Build(t.TempDir()); err == nil {
		t.Fatal("expected error for a root with no mp3 files")
	}
}

func TestTrackIDStable(t *testing.T) {
	a, b := TrackID("inception/a.mp3"), TrackID("inception/a.mp3")
	if a != b {
		t.Fatalf("id not stable: %s vs %s", a, b)
	}
	if a == TrackID("inception/b.mp3") {
		t.Fatal("distinct paths must get distinct ids")
	}
}

func TestLoadOrBuildCaches(t *testing.T) {
	root := t.TempDir()
	writeTrack(t, root, "inception/a.mp3")
	cache := filepath.Join(t.TempDir(), "index.json")

	idx, err := LoadOrBuild(cache, root)
	if err != nil {
		t.Fatalf("LoadOrBuild: %v", err)
	}

	// A second call must serve the cache even after the files vanish.
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	again, err := LoadOrBuild(cache, root)
	if err != nil {
		t.Fatalf("LoadOrBuild from cache: %v", err)
	}
	if len(again.Tracks) != len(idx.Tracks) || again.Tracks[0].ID != idx.Tracks[0].ID {
		t.Fatal("cached index does not match the built one")
	}
}
