package extract

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed legacy_aliases.yaml
var defaultAliases []byte

// AliasEntry maps one display label to every upstream field id that may carry it.
type AliasEntry struct {
	Label   string   `yaml:"label"`
	Type    string   `yaml:"type,omitempty"`
	Aliases []string `yaml:"aliases"`
}

// AliasTable is the legacy schema expressed as label to field id aliases.
type AliasTable struct {
	Entries []AliasEntry `yaml:"fields"`
}

// DefaultAliasTable returns the embedded legacy alias table.
func DefaultAliasTable() *AliasTable {
	table, err := ParseAliasTable(defaultAliases)
	if err != nil {
		panic(fmt.Sprintf("embedded alias table is invalid: %v", err))
	}

	return table
}

// LoadAliasTable reads an alias table from path. An empty path yields the embedded default.
func LoadAliasTable(path string) (*AliasTable, error) {
	if path == "" {
		return DefaultAliasTable(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias table %s: %w", path, err)
	}

	return ParseAliasTable(raw)
}

// ParseAliasTable decodes and checks a YAML alias table.
func ParseAliasTable(raw []byte) (*AliasTable, error) {
	var table AliasTable

	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to decode alias table: %w", err)
	}

	seen := make(map[string]string)

	for i, entry := range table.Entries {
		if strings.TrimSpace(entry.Label) == "" {
			return nil, fmt.Errorf("alias table entry %d has no label", i)
		}

		for _, alias := range entry.Aliases {
			if owner, ok := seen[alias]; ok {
				return nil, fmt.Errorf("alias %q is listed under both %q and %q", alias, owner, entry.Label)
			}

			seen[alias] = entry.Label
		}
	}

	return &table, nil
}

// Fields expands the table into a field list. Aliases of one label share its position so the
// formatter emits at most one line per label.
func (t *AliasTable) Fields() []models.Field {
	var fields []models.Field

	for i, entry := range t.Entries {
		fieldType := entry.Type
		if fieldType == "" {
			fieldType = "text"
		}

		for _, alias := range entry.Aliases {
			fields = append(fields, models.Field{
				FieldID: alias,
				Label:   entry.Label,
				Type:    fieldType,
				Order:   i,
			})
		}
	}

	return fields
}
