package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"journey-pipeline/types"
)

// Build scans root for .mp3 files and produces the music index. Track ids
// are the first 12 hex characters of the SHA-256 digest of the POSIX
// relative path, so they stay stable across rescans.
func Build(root string) (*types.MusicIndex, error) {
	idx := &types.MusicIndex{Root: root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".mp3") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		idx.Tracks = append(idx.Tracks, types.TrackEntry{
			ID:     TrackID(rel),
			Path:   rel,
			Folder: folderTag(rel),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(idx.Tracks) == 0 {
		return nil, fmt.Errorf("scan %s: no mp3 files found", root)
	}
	log.Printf("[index] Indexed %d tracks under %s", len(idx.Tracks), root)
	return idx, nil
}

// TrackID derives the stable 12-hex id for a relative track path.
func TrackID(rel string) string {
	sum := sha256.Sum256([]byte(rel))
	return hex.EncodeToString(sum[:])[:12]
}

// folderTag is the first path component, used downstream as the arc hint.
func folderTag(rel string) string {
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}

// Save writes the index as JSON.
func Save(idx *types.MusicIndex, path string) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a previously saved index.
func Load(path string) (*types.MusicIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx types.MusicIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	return &idx, nil
}

// LoadOrBuild loads the cached index if present, otherwise scans root and
// caches the result.
func LoadOrBuild(cachePath, root string) (*types.MusicIndex, error) {
	if idx, err := Load(cachePath); err == nil && idx.Root == root && len(idx.Tracks) > 0 {
		return idx, nil
	}
	idx, err := Build(root)
	if err != nil {
		return nil, err
	}
	if err := Save(idx, cachePath); err != nil {
		log.Printf("[index] Warning: could not cache index: %v", err)
	}
	return idx, nil
}

// AbsPath resolves a track entry to its absolute location on disk.
func AbsPath(idx *types.MusicIndex, t types.TrackEntry) string {
	return filepath.Join(idx.Root, filepath.FromSlash(t.Path))
}
