package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DefaultFileName is the single-file output name.
const DefaultFileName = "spotify_streaming_history.json"

const chunkPattern = "Streaming_History_Audio_*.json"

// Writer writes streams as Spotify export files.
type Writer struct {
	maxPerFile int
}

// NewWriter creates a Writer. When maxPerFile is positive, output is split
// into Streaming_History_Audio_<years>_<n>.json chunks of at most maxPerFile
// entries inside the output directory, replacing any chunks already there;
// otherwise a single file is written.
func NewWriter(maxPerFile int) *Writer {
	return &Writer{maxPerFile: maxPerFile}
}

// Sort orders streams by play time, keeping input order for equal times.
func Sort(streams []Stream) {
	sort.SliceStable(streams, func(i, j int) bool {
		return streams[i].OfflineTimestamp < streams[j].OfflineTimestamp
	})
}

// Write writes streams to output and returns the paths written.
func (w *Writer) Write(output string, streams []Stream) ([]string, error) {
	if w.maxPerFile <= 0 {
		if err := writeJSON(output, streams); err != nil {
			return nil, err
		}
		return []string{output}, nil
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var paths []string
	for i, n := 0, 0; i < len(streams); i, n = i+w.maxPerFile, n+1 {
		end := min(i+w.maxPerFile, len(streams))
		chunk := streams[i:end]

		path := filepath.Join(output, ChunkName(chunk, n))
		if err := writeJSON(path, chunk); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if err := removeStaleChunks(output, paths); err != nil {
		return paths, err
	}
	return paths, nil
}

// removeStaleChunks deletes chunk files in dir left by an earlier run that
// are not among keep.
func removeStaleChunks(dir string, keep []string) error {
	existing, err := filepath.Glob(filepath.Join(dir, chunkPattern))
	if err != nil {
		return fmt.Errorf("listing chunks in %s: %w", dir, err)
	}

	written := make(map[string]bool, len(keep))
	for _, p := range keep {
		written[filepath.Clean(p)] = true
	}
	for _, p := range existing {
		if written[filepath.Clean(p)] {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale chunk: %w", err)
		}
	}
	return nil
}

// ChunkName names a chunk the way Spotify does, e.g.
// Streaming_History_Audio_2019-2020_3.json.
func ChunkName(chunk []Stream, index int) string {
	if len(chunk) == 0 {
		return fmt.Sprintf("Streaming_History_Audio_%d.json", index)
	}

	from := chunk[0].Time().Year()
	to := chunk[len(chunk)-1].Time().Year()
	if from == to {
		return fmt.Sprintf("Streaming_History_Audio_%d_%d.json", from, index)
	}
	return fmt.Sprintf("Streaming_History_Audio_%d-%d_%d.json", from, to, index)
}

// writeJSON encodes streams with two-space indentation and writes them
// atomically. A nil slice is written as an empty array.
func writeJSON(path string, streams []Stream) error {
	if streams == nil {
		streams = []Stream{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(streams); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
