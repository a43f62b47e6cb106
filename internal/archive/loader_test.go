package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

const exportJS = `window.YTD.tweets.part0 = [
  {
    "tweet": {
      "id_str": "100",
      "full_text": "first post here",
      "created_at": "Wed Oct 10 20:19:24 +0000 2018"
    }
  },
  {
    "tweet": {
      "id_str": "101",
      "full_text": "RT @someone a repost",
      "created_at": "Thu Oct 11 20:19:24 +0000 2018"
    }
  }
]`

func TestLoadArchiveSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tweets.js")
	writeFile(t, path, exportJS)

	tweets, err := LoadArchive(path)
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if len(tweets) != 2 {
		t.Fatalf("got %d tweets, want 2", len(tweets))
	}
	if tweets[0].ID != "100" || tweets[0].Text != "first post here" {
		t.Errorf("first tweet = %+v", tweets[0])
	}
	// Mention stripping consumes the "@someone" out of the marker; the
	// flag fires only when "RT @" survives cleaning intact.
	if tweets[1].IsRetweet {
		t.Error("marker should not survive mention stripping")
	}
	if tweets[1].Text != "RT a repost" {
		t.Errorf("cleaned text = %q", tweets[1].Text)
	}
}

func TestRetweetMarkerOnCleanedText(t *testing.T) {
	raw := rawTweet{IDStr: "1", FullText: "RT @ everyone: the marker survives"}
	if tw := raw.Unify(); !tw.IsRetweet {
		t.Errorf("IsRetweet = false for cleaned text %q", tw.Text)
	}
}

func TestLoadArchiveFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "tweets.js"), exportJS)

	tweets, err := LoadArchive(dir)
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if len(tweets) != 2 {
		t.Errorf("got %d tweets, want 2", len(tweets))
	}
}

func TestLoadArchiveMultiPartFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "tweets", "part1.js"),
		`window.YTD.x = [{"tweet":{"id_str":"1","full_text":"one"}}]`)
	writeFile(t, filepath.Join(dir, "data", "tweets", "part0.js"),
		`window.YTD.x = [{"tweet":{"id_str":"2","full_text":"two"}}]`)

	tweets, err := LoadArchive(dir)
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if len(tweets) != 2 {
		t.Fatalf("got %d tweets, want 2", len(tweets))
	}
	// Parts load in sorted order.
	if tweets[0].ID != "2" || tweets[1].ID != "1" {
		t.Errorf("part order = %s, %s, want 2, 1", tweets[0].ID, tweets[1].ID)
	}
}

func TestLoadArchiveErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(dir string) string
	}{
		{
			name: "missing path",
			setup: func(dir string) string {
				return filepath.Join(dir, "absent")
			},
		},
		{
			name: "unsupported file type",
			setup: func(dir string) string {
				p := filepath.Join(dir, "tweets.csv")
				writeFile(t, p, "id,text\n")
				return p
			},
		},
		{
			name: "folder without export files",
			setup: func(dir string) string {
				return dir
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadArchive(tt.setup(t.TempDir())); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadPlainJSONArray(t *testing.T) {
	// API-shaped dumps are bare arrays without the tweet wrapper.
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.json")
	writeFile(t, path, `[{"id":12345,"text":"numeric id item","in_reply_to_status_id":99}]`)

	tweets, err := LoadArchive(path)
	if err != nil {
		t.Fatalf("LoadArchive() error = %v", err)
	}
	if len(tweets) != 1 {
		t.Fatalf("got %d tweets, want 1", len(tweets))
	}
	if tweets[0].ID != "12345" {
		t.Errorf("ID = %q, want 12345", tweets[0].ID)
	}
	if tweets[0].ReplyToID != "99" {
		t.Errorf("ReplyToID = %q, want 99", tweets[0].ReplyToID)
	}
}

func TestParseSourceApp(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "anchor text",
			in:   `<a href="https://example.com" rel="nofollow">My App</a>`,
			want: "My App",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
		{
			name: "bare text",
			in:   "plain source",
			want: "plain source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseSourceApp(tt.in); got != tt.want {
				t.Errorf("parseSourceApp(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
