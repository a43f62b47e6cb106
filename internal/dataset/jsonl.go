package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/persona-sft/internal"
)

// maxLineBytes bounds a single JSONL line. Long document chunks stay well
// under this; anything bigger is treated as malformed.
const maxLineBytes = 4 * 1024 * 1024

// ReadJSONL reads every line of every input file as an independent record.
// Malformed lines are skipped. Each record is tagged in memory with the base
// name of its originating file.
func ReadJSONL(paths []string) ([]internal.Record, error) {
	var records []internal.Record
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		name := filepath.Base(p)
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), maxLineBytes)
		for sc.Scan() {
			line := sc.Bytes()
			if len(line) == 0 {
				continue
			}
			var rec internal.Record
			if err := json.Unmarshal(line, &rec); err != nil {
				continue
			}
			rec.SourceFile = name
			records = append(records, rec)
		}
		scanErr := sc.Err()
		f.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, scanErr)
		}
	}
	return records, nil
}

// WriteJSONL writes records to path, one JSON object per line, replacing any
// existing file. The in-memory source tag is not serialized.
func WriteJSONL(path string, records []internal.Record) error {
	return writeJSONL(path, records, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

// AppendJSONL appends records to path, creating it if absent.
func AppendJSONL(path string, records []internal.Record) error {
	return writeJSONL(path, records, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

func writeJSONL(path string, records []internal.Record, flags int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}
