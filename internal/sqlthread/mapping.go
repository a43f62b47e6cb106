package sqlthread

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iksnae/persona-sft/internal"
)

// ColumnMap names the columns of the generic parent/child row schema.
type ColumnMap struct {
	ID           string `yaml:"id"`
	ParentID     string `yaml:"parent_id"`
	RootID       string `yaml:"root_id"`
	AuthorNick   string `yaml:"author_nick"`
	CreatedAt    string `yaml:"created_at"`
	ContentTitle string `yaml:"content_title"`
	ContentBody  string `yaml:"content_body"`
}

// Mapping is the external per-source schema description. It lives in a YAML
// sidecar next to the database file, same base name.
type Mapping struct {
	TableName string    `yaml:"table_name"`
	Columns   ColumnMap `yaml:"column_names"`
}

type sidecarFile struct {
	SchemaMapping Mapping `yaml:"schema_mapping"`
}

// SidecarPath returns the expected mapping file path for a database file.
func SidecarPath(dbPath string) string {
	ext := filepath.Ext(dbPath)
	return strings.TrimSuffix(dbPath, ext) + ".yaml"
}

// LoadMapping reads and validates the sidecar mapping for dbPath. Missing or
// incomplete mappings are configuration errors naming the missing piece.
func LoadMapping(dbPath string) (*Mapping, error) {
	sidecar := SidecarPath(dbPath)
	data, err := os.ReadFile(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &internal.ConfigError{
				Field: "schema mapping",
				Hint:  fmt.Sprintf("create %s with schema_mapping.table_name and schema_mapping.column_names", filepath.Base(sidecar)),
			}
		}
		return nil, fmt.Errorf("failed to read %s: %w", sidecar, err)
	}

	var file sidecarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &internal.ConfigError{
			Field: "schema mapping",
			Hint:  fmt.Sprintf("%s is not valid YAML: %v", filepath.Base(sidecar), err),
		}
	}

	m := file.SchemaMapping
	if err := m.validate(filepath.Base(sidecar)); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Mapping) validate(sidecarName string) error {
	missing := ""
	switch {
	case m.TableName == "":
		missing = "schema_mapping.table_name"
	case m.Columns.ID == "":
		missing = "schema_mapping.column_names.id"
	case m.Columns.ParentID == "":
		missing = "schema_mapping.column_names.parent_id"
	case m.Columns.RootID == "":
		missing = "schema_mapping.column_names.root_id"
	case m.Columns.AuthorNick == "":
		missing = "schema_mapping.column_names.author_nick"
	case m.Columns.CreatedAt == "":
		missing = "schema_mapping.column_names.created_at"
	case m.Columns.ContentBody == "":
		missing = "schema_mapping.column_names.content_body"
	}
	if missing != "" {
		return &internal.ConfigError{
			Field: missing,
			Hint:  fmt.Sprintf("add it to %s", sidecarName),
		}
	}
	return nil
}
