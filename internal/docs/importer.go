package docs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/iksnae/persona-sft/internal"
	"github.com/iksnae/persona-sft/internal/dataset"
)

// Options controls an incremental document import.
type Options struct {
	Out           string
	StatePath     string
	MinChars      int
	MaxChars      int
	LangTag       string
	PruneMissing  bool
	AssistantRole string
	Readers       Registry // defaults to DefaultRegistry when nil
}

// Stats summarizes a document import run.
type Stats struct {
	Scanned  int
	Skipped  int // unchanged files
	Failed   int // unreadable files
	Appended int // new chunks emitted
	Pruned   int
}

// Process incrementally ingests the file tree under root into paragraph
// style examples. Unchanged files (same mtime and size) are never re-read;
// within a changed file, chunks already emitted in a prior run are skipped
// by content hash. Output is append-only; state is saved once at the end.
func Process(root string, opts Options) (*Stats, error) {
	readers := opts.Readers
	if readers == nil {
		readers = DefaultRegistry()
	}

	state := LoadState(opts.StatePath)
	stats := &Stats{}
	seenFiles := make(map[string]bool)

	files, err := enumerate(root, readers)
	if err != nil {
		return nil, err
	}
	stats.Scanned = len(files)

	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		seenFiles[abs] = true

		info, err := os.Stat(path)
		if err != nil {
			internal.LogWarn("Failed to stat %s: %v", path, err)
			stats.Failed++
			continue
		}
		mtime := float64(info.ModTime().UnixNano()) / 1e9

		prior, known := state.Files[abs]
		if known && prior.Mtime == mtime && prior.Size == info.Size() {
			stats.Skipped++
			continue
		}

		text, err := readers.Extract(path)
		if err != nil {
			// Per-file capability gap or read failure; the run continues.
			internal.LogWarn("Failed to read %s: %v", path, err)
			stats.Failed++
			continue
		}
		if strings.TrimSpace(text) == "" {
			state.Files[abs] = FileState{Mtime: mtime, Size: info.Size()}
			continue
		}

		priorChunks := make(map[string]bool, len(prior.Chunks))
		for _, h := range prior.Chunks {
			priorChunks[h] = true
		}

		var newRecords []internal.Record
		currentChunks := make(map[string]bool)
		for _, par := range SplitParagraphs(internal.NormalizeWhitespace(text)) {
			// Length limits are in characters, not bytes.
			if n := utf8.RuneCountInString(par); n < opts.MinChars || n > opts.MaxChars {
				continue
			}
			h := internal.DedupKey(par)
			currentChunks[h] = true
			if priorChunks[h] {
				continue // emitted in a prior run
			}
			newRecords = append(newRecords, makeStyleExample(par, abs, opts))
		}

		if len(newRecords) > 0 {
			if err := dataset.AppendJSONL(opts.Out, newRecords); err != nil {
				return nil, err
			}
			stats.Appended += len(newRecords)
		}

		state.Files[abs] = FileState{
			Mtime:  mtime,
			Size:   info.Size(),
			Chunks: sortedKeys(currentChunks),
		}
	}

	if opts.PruneMissing {
		for key := range state.Files {
			if !seenFiles[key] {
				delete(state.Files, key)
				internal.LogInfo("Pruned missing file from state: %s", key)
				stats.Pruned++
			}
		}
	}

	if err := state.Save(opts.StatePath); err != nil {
		return nil, err
	}
	return stats, nil
}

// enumerate collects every file under root with a supported extension. A
// single supported file is accepted directly.
func enumerate(root string, readers Registry) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", root, err)
	}
	if !info.IsDir() {
		if !readers.Supported(filepath.Ext(root)) {
			return nil, fmt.Errorf("unsupported document type: %s", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			internal.LogWarn("Skipping unreadable path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() && readers.Supported(filepath.Ext(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// makeStyleExample pairs a keyword-derived synthetic prompt with the
// paragraph as the authored response.
func makeStyleExample(paragraph, sourcePath string, opts Options) internal.Record {
	topics := TopicKeywords(paragraph)
	prompt := fmt.Sprintf("Write a paragraph in my signature style about: %s.", strings.Join(topics, ", "))
	meta := map[string]any{"source": sourcePath}
	if opts.LangTag != "" {
		meta["lang"] = opts.LangTag
	}
	return internal.Record{
		Messages: []internal.Message{
			{Role: internal.RoleUser, Content: prompt},
			{Role: opts.AssistantRole, Content: paragraph},
		},
		Meta: meta,
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
