package listenbrainz

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxLineSize bounds a single JSON line; listens are small but some
// submitters attach large additional_info blobs.
const maxLineSize = 4 * 1024 * 1024

// ErrMalformed is returned when a file is not a ListenBrainz export.
var ErrMalformed = errors.New("malformed listen file")

// LineError describes a single unparseable record. Line is set for
// line-delimited files, Element (1-based) for JSON array files.
type LineError struct {
	Line    int
	Element int
	Err     error
}

func (e LineError) Error() string {
	if e.Element > 0 {
		return fmt.Sprintf("element %d: %v", e.Element, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// FileResult is the outcome of reading one export file.
type FileResult struct {
	Path    string
	Listens []Listen
	// Skipped lists records that could not be parsed. The rest of the file
	// is still returned.
	Skipped []LineError
}

// FindFiles walks root recursively and returns every .json and .jsonl file,
// sorted by path.
func FindFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".jsonl":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking input directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// ReadFile parses a ListenBrainz export file. A .json file may hold either a
// JSON array of listens or one listen per line; .jsonl files are read line
// by line.
func ReadFile(path string) (*FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	result := &FileResult{Path: path}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return result, nil
	}

	if trimmed[0] == '[' {
		if err := readArray(trimmed, result); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
		}
	} else if err := readLines(bytes.NewReader(data), result); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// A file where nothing parsed is not an export at all.
	if len(result.Listens) == 0 && len(result.Skipped) > 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, result.Skipped[0])
	}

	return result, nil
}

// readArray decodes a JSON array of listens element by element. Only an
// array that is not valid JSON is an error.
func readArray(data []byte, result *FileResult) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}

	for i, raw := range elems {
		var l Listen
		if err := json.Unmarshal(raw, &l); err != nil {
			result.Skipped = append(result.Skipped, LineError{Element: i + 1, Err: err})
			continue
		}
		result.Listens = append(result.Listens, l)
	}
	return nil
}

// readLines decodes one listen per non-blank line.
func readLines(r io.Reader, result *FileResult) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var l Listen
		if err := json.Unmarshal(line, &l); err != nil {
			result.Skipped = append(result.Skipped, LineError{Line: lineNo, Err: err})
			continue
		}
		result.Listens = append(result.Listens, l)
	}

	return scanner.Err()
}
