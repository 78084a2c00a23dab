// Package extract normalizes incoming form builder payloads into a flat map of known field ids.
package extract

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
)

var flattenedField = regexp.MustCompile(`^(?:form_)?fields\[([^\]]+)\]\[value\]$`)

// Extract returns the values of fields known to the schema. It recognizes, in priority order,
// a nested "fields" object keyed by id with {value}, flat top-level keys, and URL-encoded
// fields[id][value] keys. Blank values are treated as absent.
func Extract(data map[string]any, fields []models.Field) map[string]string {
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.FieldID] = struct{}{}
	}

	if nested, ok := nestedFields(data); ok {
		return fromNested(nested, known)
	}

	if flat := fromFlat(data, known); len(flat) > 0 {
		return flat
	}

	return fromFlattened(data, known)
}

func nestedFields(data map[string]any) (map[string]any, bool) {
	for _, key := range []string{"fields", "form_fields"} {
		if nested, ok := data[key].(map[string]any); ok {
			return nested, true
		}
	}

	return nil, false
}

func fromNested(nested map[string]any, known map[string]struct{}) map[string]string {
	out := make(map[string]string)

	for id, raw := range nested {
		if _, ok := known[id]; !ok {
			continue
		}

		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		value, ok := entry["value"]
		if !ok {
			continue
		}

		if s, ok := Stringify(value); ok {
			out[id] = s
		}
	}

	return out
}

func fromFlat(data map[string]any, known map[string]struct{}) map[string]string {
	out := make(map[string]string)

	for id := range known {
		value, ok := data[id]
		if !ok {
			continue
		}

		if s, ok := Stringify(value); ok {
			out[id] = s
		}
	}

	return out
}

func fromFlattened(data map[string]any, known map[string]struct{}) map[string]string {
	out := make(map[string]string)

	for key, value := range data {
		match := flattenedField.FindStringSubmatch(key)
		if match == nil {
			continue
		}

		if _, ok := known[match[1]]; !ok {
			continue
		}

		if s, ok := Stringify(value); ok {
			out[match[1]] = s
		}
	}

	return out
}

// Stringify renders a decoded JSON value as message text. It reports false for nil and blank values.
func Stringify(value any) (string, bool) {
	var s string

	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		s = v.String()
	case bool:
		s = strconv.FormatBool(v)
	case []any:
		parts := make([]string, 0, len(v))

		for _, item := range v {
			if text, ok := Stringify(item); ok {
				parts = append(parts, text)
			}
		}

		s = strings.Join(parts, ", ")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}

		s = string(encoded)
	}

	if strings.TrimSpace(s) == "" {
		return "", false
	}

	return s, true
}

// ParseBody decodes a request body as a JSON object, falling back to URL-encoded form data.
// Malformed input yields whatever could be recovered and never a nil map.
func ParseBody(raw []byte) map[string]any {
	data := make(map[string]any)

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return data
	}

	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &data); err == nil {
			return data
		}

		data = make(map[string]any)
	}

	// ParseQuery keeps every pair it could decode alongside the first error.
	values, _ := url.ParseQuery(string(trimmed))
	for key, vs := range values {
		if len(vs) > 0 {
			data[key] = vs[0]
		}
	}

	return data
}
