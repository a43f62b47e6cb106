package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iksnae/persona-sft/internal"
)

// LoadArchive loads raw tweets from an unzipped export folder or a single
// .js/.json file. A missing or unsupported source is fatal for the run.
func LoadArchive(path string) ([]Tweet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access archive: %w", err)
	}

	if !info.IsDir() {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".js", ".json":
			return loadExportFile(path)
		}
		return nil, fmt.Errorf("unsupported file type for archive: %s", path)
	}

	// Export layouts: data/tweets.js for single-part archives, or
	// data/tweets/*.js for multi-part ones.
	candidates, _ := filepath.Glob(filepath.Join(path, "data", "tweets.js"))
	parts, _ := filepath.Glob(filepath.Join(path, "data", "tweets", "*.js"))
	candidates = append(candidates, parts...)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no tweets.js found under: %s", path)
	}
	sort.Strings(candidates)

	var tweets []Tweet
	for _, p := range candidates {
		part, err := loadExportFile(p)
		if err != nil {
			internal.LogWarn("Skipping unreadable archive part %s: %v", p, err)
			continue
		}
		tweets = append(tweets, part...)
	}
	return tweets, nil
}

// loadExportFile parses one export file. Export .js files wrap the JSON
// array in a window.YTD assignment, so the payload is sliced between the
// first '[' and the last ']' before decoding.
func loadExportFile(path string) ([]Tweet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	payload := data
	if i, j := bytes.IndexByte(data, '['), bytes.LastIndexByte(data, ']'); i != -1 && j > i {
		payload = data[i : j+1]
	}

	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	tweets := make([]Tweet, 0, len(items))
	for _, item := range items {
		raw, err := decodeItem(item)
		if err != nil {
			internal.LogWarn("Skipping unreadable archive item: %v", err)
			continue
		}
		tweets = append(tweets, raw.Unify())
	}
	return tweets, nil
}

// decodeItem handles both bare tweet objects and the {"tweet": {...}}
// wrapper used by archive exports.
func decodeItem(item json.RawMessage) (*rawTweet, error) {
	var wrapper struct {
		Tweet json.RawMessage `json:"tweet"`
	}
	if err := json.Unmarshal(item, &wrapper); err == nil && len(wrapper.Tweet) > 0 {
		item = wrapper.Tweet
	}
	var raw rawTweet
	if err := json.Unmarshal(item, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}
