package sqlthread

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/persona-sft/internal"
	"github.com/iksnae/persona-sft/internal/dataset"
)

const forumDump = `
CREATE TABLE posts (
	post_id INTEGER PRIMARY KEY,
	reply_to INTEGER,
	thread_id INTEGER,
	author TEXT,
	posted_at TEXT,
	title TEXT,
	body TEXT
);
INSERT INTO posts VALUES (1, 0, 1, 'alice', '2020-01-01 10:00:00', 'Build question', 'Has anyone tried the new build?');
INSERT INTO posts VALUES (2, 1, 1, 'kit', '2020-01-01 10:05:00', NULL, 'Yes, it works fine for me.');
INSERT INTO posts VALUES (3, 2, 1, 'bob', '2020-01-01 10:10:00', NULL, 'Which version exactly?');
INSERT INTO posts VALUES (4, 3, 1, 'kit', '2020-01-01 10:15:00', NULL, 'The 2.4 release from last week.');
INSERT INTO posts VALUES (5, 0, 5, 'kit', '2020-01-02 08:00:00', NULL, 'A standalone post with no parent.');
INSERT INTO posts VALUES (6, 99, 6, 'kit', '2020-01-03 08:00:00', NULL, 'My parent is gone.');
`

func writeDump(t *testing.T, dump string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "forum.sql")
	if err := os.WriteFile(dbPath, []byte(dump), 0o644); err != nil {
		t.Fatal(err)
	}
	writeSidecar(t, dbPath, validSidecar)
	return dbPath
}

func runProcess(t *testing.T, dbPath string, opts Options) []internal.Record {
	t.Helper()
	if opts.Out == "" {
		opts.Out = filepath.Join(filepath.Dir(dbPath), "out.jsonl")
	}
	if _, err := Process(dbPath, opts); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	records, err := dataset.ReadJSONL([]string{opts.Out})
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestProcessRequiresNick(t *testing.T) {
	var ce *internal.ConfigError
	if _, err := Process("whatever.sql", Options{AssistantRole: "model"}); !errors.As(err, &ce) {
		t.Errorf("error = %v, want ConfigError for the missing nick", err)
	}
}

func TestProcessBuildsThreads(t *testing.T) {
	dbPath := writeDump(t, forumDump)
	records := runProcess(t, dbPath, Options{AuthorNick: "kit", AssistantRole: "model"})

	// Posts 2 and 4 have real context; 5 has no parent and 6 a dangling one,
	// so both collapse to a single turn and are dropped.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if len(first.Messages) != 2 {
		t.Fatalf("first thread has %d messages, want 2", len(first.Messages))
	}
	if first.Messages[0].Role != internal.RoleUser {
		t.Errorf("context role = %s, want user", first.Messages[0].Role)
	}
	// Title and body join as one turn.
	if got := first.Messages[0].Content; got != "Build question\n\nHas anyone tried the new build?" {
		t.Errorf("context content = %q", got)
	}
	if first.Messages[1].Role != "model" || first.Messages[1].Content != "Yes, it works fine for me." {
		t.Errorf("response = %+v", first.Messages[1])
	}

	second := records[1]
	if len(second.Messages) != 4 {
		t.Fatalf("second thread has %d messages, want the full chain of 4", len(second.Messages))
	}
	if second.Messages[3].Content != "The 2.4 release from last week." {
		t.Errorf("final turn = %q", second.Messages[3].Content)
	}
	if got := second.MetaString("post_id"); got != "4" {
		t.Errorf("post_id = %s, want 4", got)
	}
	if got := second.MetaString("thread_id"); got != "1" {
		t.Errorf("thread_id = %s, want 1", got)
	}
}

func TestProcessStripSelfContext(t *testing.T) {
	dbPath := writeDump(t, forumDump)
	records := runProcess(t, dbPath, Options{
		AuthorNick:       "kit",
		AssistantRole:    "model",
		StripSelfContext: true,
	})

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// The deep chain loses the author's own earlier reply.
	deep := records[1]
	if len(deep.Messages) != 3 {
		t.Fatalf("stripped chain has %d messages, want 3", len(deep.Messages))
	}
	for _, m := range deep.Messages[:2] {
		if m.Content == "Yes, it works fine for me." {
			t.Error("author's own turn survived strip-self")
		}
	}
}

func TestProcessMaxContext(t *testing.T) {
	dbPath := writeDump(t, forumDump)
	records := runProcess(t, dbPath, Options{
		AuthorNick:    "kit",
		AssistantRole: "model",
		MaxContext:    1,
	})

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	deep := records[1]
	if len(deep.Messages) != 2 {
		t.Fatalf("capped chain has %d messages, want 2", len(deep.Messages))
	}
	// Only the turn immediately before the response remains.
	if deep.Messages[0].Content != "Which version exactly?" {
		t.Errorf("kept context = %q", deep.Messages[0].Content)
	}
}

func TestProcessCyclicParents(t *testing.T) {
	dump := `
CREATE TABLE posts (
	post_id INTEGER PRIMARY KEY,
	reply_to INTEGER,
	thread_id INTEGER,
	author TEXT,
	posted_at TEXT,
	title TEXT,
	body TEXT
);
INSERT INTO posts VALUES (1, 2, 1, 'alice', '2020-01-01 10:00:00', NULL, 'I point at two.');
INSERT INTO posts VALUES (2, 1, 1, 'kit', '2020-01-01 10:05:00', NULL, 'And I point back at one.');
INSERT INTO posts VALUES (3, 3, 3, 'kit', '2020-01-01 11:00:00', NULL, 'I am my own parent.');
`
	dbPath := writeDump(t, dump)
	records := runProcess(t, dbPath, Options{AuthorNick: "kit", AssistantRole: "model"})

	// The two-node cycle terminates and yields one valid pair; the
	// self-parent row has no context and is dropped.
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Messages[0].Content != "I point at two." {
		t.Errorf("context = %q", records[0].Messages[0].Content)
	}
}

func TestProcessTieOrdering(t *testing.T) {
	// Identical timestamps fall back to id order.
	dump := `
CREATE TABLE posts (
	post_id INTEGER PRIMARY KEY,
	reply_to INTEGER,
	thread_id INTEGER,
	author TEXT,
	posted_at TEXT,
	title TEXT,
	body TEXT
);
INSERT INTO posts VALUES (2, 1, 1, 'kit', '2020-01-01 10:00:00', NULL, 'Second by id.');
INSERT INTO posts VALUES (1, 0, 1, 'alice', '2020-01-01 10:00:00', NULL, 'First by id.');
INSERT INTO posts VALUES (3, 1, 1, 'kit', '2020-01-01 10:00:00', NULL, 'Third by id.');
`
	dbPath := writeDump(t, dump)
	records := runProcess(t, dbPath, Options{AuthorNick: "kit", AssistantRole: "model"})

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if got := records[0].MetaString("post_id"); got != "2" {
		t.Errorf("first record post_id = %s, want 2", got)
	}
	if got := records[1].MetaString("post_id"); got != "3" {
		t.Errorf("second record post_id = %s, want 3", got)
	}
}
