package sqlthread

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/iksnae/persona-sft/internal"
	"github.com/iksnae/persona-sft/internal/dataset"
)

// Options controls a relational thread import.
type Options struct {
	Out              string
	AuthorNick       string
	MaxContext       int  // cap on prior turns kept as context, 0 = unlimited
	StripSelfContext bool // drop the author's own earlier turns from context
	AssistantRole    string
}

// Stats summarizes a thread import run.
type Stats struct {
	Rows    int
	Written int
}

// row is one generic relational record keyed by column name.
type row map[string]any

// key renders a column value as a canonical identity string.
func (r row) key(col string) string {
	return valueKey(r[col])
}

// text renders a column value as display text.
func (r row) text(col string) string {
	if col == "" {
		return ""
	}
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func valueKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Process reconstructs conversation threads from the database at dbPath,
// keeping the turns authored by the target author as assistant responses.
// The schema comes from the sidecar mapping; output is overwrite-mode, this
// adapter is not incremental.
func Process(dbPath string, opts Options) (*Stats, error) {
	if opts.AuthorNick == "" {
		return nil, &internal.ConfigError{Field: "author nick", Hint: "pass --nick with your author name in the database"}
	}

	mapping, err := LoadMapping(dbPath)
	if err != nil {
		return nil, err
	}

	db, err := OpenSource(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := loadRows(db, mapping)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Rows: len(rows)}

	cols := mapping.Columns
	byID := make(map[string]row, len(rows))
	for _, r := range rows {
		if id := r.key(cols.ID); id != "" {
			byID[id] = r
		}
	}

	var records []internal.Record
	for _, r := range rows {
		if r.text(cols.AuthorNick) != opts.AuthorNick {
			continue
		}

		chain := ancestors(byID, r, cols)
		if len(chain) == 0 {
			continue
		}

		ctx := chain[:len(chain)-1]
		if opts.StripSelfContext {
			filtered := make([]row, 0, len(ctx))
			for _, c := range ctx {
				if c.text(cols.AuthorNick) != opts.AuthorNick {
					filtered = append(filtered, c)
				}
			}
			ctx = filtered
		}
		if opts.MaxContext > 0 && len(ctx) > opts.MaxContext {
			ctx = ctx[len(ctx)-opts.MaxContext:]
		}

		var msgs []internal.Message
		for _, c := range ctx {
			if content := rowContent(c, cols); content != "" {
				msgs = append(msgs, internal.Message{Role: internal.RoleUser, Content: content})
			}
		}

		final := chain[len(chain)-1]
		content := rowContent(final, cols)
		if content == "" {
			continue
		}
		msgs = append(msgs, internal.Message{Role: opts.AssistantRole, Content: content})
		if len(msgs) < 2 {
			continue
		}

		records = append(records, internal.Record{
			Messages: msgs,
			Meta: map[string]any{
				"thread_id":  final[cols.RootID],
				"post_id":    final[cols.ID],
				"created_at": final.text(cols.CreatedAt),
			},
		})
	}

	if err := dataset.WriteJSONL(opts.Out, records); err != nil {
		return nil, err
	}
	stats.Written = len(records)
	return stats, nil
}

// loadRows reads the whole mapped table ordered by creation time ascending,
// ties broken by identity ascending.
func loadRows(db *sql.DB, mapping *Mapping) ([]row, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY datetime(%s) ASC, %s ASC",
		mapping.TableName, mapping.Columns.CreatedAt, mapping.Columns.ID)
	internal.LogDebug("Executing query: %s", query)

	res, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer res.Close()

	colNames, err := res.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var rows []row
	for res.Next() {
		values := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := res.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		r := make(row, len(colNames))
		for i, name := range colNames {
			r[name] = values[i]
		}
		rows = append(rows, r)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return rows, nil
}

// ancestors resolves [root, ..., this row] by following the parent pointer
// upward. The walk stops on a null, zero or self-referencing parent, on a
// missing ancestor, and never revisits an already-seen identity, so cyclic
// parent pointers in malformed data cannot loop.
func ancestors(byID map[string]row, start row, cols ColumnMap) []row {
	var chain []row
	seen := make(map[string]bool)
	cur := start
	for cur != nil && !seen[cur.key(cols.ID)] {
		chain = append(chain, cur)
		seen[cur.key(cols.ID)] = true

		pid := cur.key(cols.ParentID)
		if pid == "" || pid == "0" || pid == cur.key(cols.ID) {
			break
		}
		cur = byID[pid]
	}

	// Root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// rowContent joins the optional title and the body into one turn.
func rowContent(r row, cols ColumnMap) string {
	title := r.text(cols.ContentTitle)
	body := r.text(cols.ContentBody)
	return strings.TrimSpace(title + "\n\n" + body)
}
