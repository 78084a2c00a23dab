package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_Accessors(t *testing.T) {
	t.Parallel()

	row := Row{
		"id":         float64(7),
		"pg_id":      int64(9),
		"name":       "Ana",
		"bytes":      []byte("raw"),
		"required":   float64(1),
		"pg_bool":    true,
		"str_bool":   "0",
		"contact_id": nil,
		"created_at": "2025-03-07 14:05:09",
		"updated_at": "2025-03-07T14:05:09Z",
		"ids":        "a, b,,c",
		"number":     json.Number("12"),
	}

	assert.Equal(t, int64(7), row.Int64("id"))
	assert.Equal(t, int64(9), row.Int64("pg_id"))
	assert.Equal(t, int64(12), row.Int64("number"))
	assert.Equal(t, "Ana", row.String("name"))
	assert.Equal(t, "raw", row.String("bytes"))
	assert.Equal(t, "7", row.String("id"))
	assert.Empty(t, row.String("missing"))
	assert.True(t, row.Bool("required"))
	assert.True(t, row.Bool("pg_bool"))
	assert.False(t, row.Bool("str_bool"))
	assert.Nil(t, row.NullableInt64("contact_id"))

	id := row.NullableInt64("id")
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	want := time.Date(2025, 3, 7, 14, 5, 9, 0, time.UTC)
	assert.True(t, want.Equal(row.Time("created_at")))
	assert.True(t, want.Equal(row.Time("updated_at")))
	assert.True(t, row.Time("name").IsZero())

	assert.Equal(t, []string{"a", "b", "c"}, row.StringList("ids"))
	assert.Equal(t, []string{}, row.StringList("missing"))
}

func TestResult_First(t *testing.T) {
	t.Parallel()

	var nilResult *Result
	assert.Nil(t, nilResult.First())
	assert.Nil(t, (&Result{}).First())
	assert.Equal(t, "x", (&Result{Rows: []Row{{"v": "x"}}}).First().String("v"))
}
