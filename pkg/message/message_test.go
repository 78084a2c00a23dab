package message

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
)

func fixedFormatter() *Formatter {
	return &Formatter{
		Location: time.UTC,
		Now: func() time.Time {
			return time.Date(2025, 3, 7, 14, 5, 9, 0, time.UTC)
		},
	}
}

func TestFormat_HeaderAndTimestamp(t *testing.T) {
	t.Parallel()

	out := fixedFormatter().Format(map[string]string{"nome": "Ana"}, []models.Field{
		{FieldID: "nome", Label: "Nome"},
	})

	assert.Equal(t, "*Nova submissão de formulário*\nData/Hora: 07/03/2025, 14:05:09\n\n*Nome:* Ana", out)
}

func TestFormat_FollowsFieldOrderNotPayloadOrder(t *testing.T) {
	t.Parallel()

	fields := []models.Field{
		{FieldID: "email", Label: "E-mail", Order: 2},
		{FieldID: "nome", Label: "Nome", Order: 0},
		{FieldID: "empresa", Label: "Empresa", Order: 1},
	}

	out := fixedFormatter().Format(map[string]string{
		"email":   "ana@example.com",
		"empresa": "ACME",
		"nome":    "Ana",
	}, fields)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, []string{"*Nome:* Ana", "*Empresa:* ACME", "*E-mail:* ana@example.com"}, lines[3:])
}

func TestFormat_DeduplicatesByLabel(t *testing.T) {
	t.Parallel()

	fields := []models.Field{
		{FieldID: "nome", Label: "Nome", Order: 0},
		{FieldID: "name", Label: "Nome", Order: 0},
		{FieldID: "email", Label: "E-mail", Order: 1},
	}

	out := fixedFormatter().Format(map[string]string{
		"name":  "Ana",
		"nome":  "Ana Maria",
		"email": "ana@example.com",
	}, fields)

	assert.Equal(t, 1, strings.Count(out, "*Nome:*"))
	assert.Contains(t, out, "*Nome:* Ana Maria")
}

func TestFormat_SkipsMissingAndFallsThroughAliases(t *testing.T) {
	t.Parallel()

	fields := []models.Field{
		{FieldID: "nome", Label: "Nome", Order: 0},
		{FieldID: "name", Label: "Nome", Order: 0},
		{FieldID: "empresa", Label: "Empresa", Order: 1},
	}

	out := fixedFormatter().Format(map[string]string{"name": "Ana", "empresa": " "}, fields)

	assert.Contains(t, out, "*Nome:* Ana")
	assert.NotContains(t, out, "Empresa")
}

func TestNewFormatter_Timezone(t *testing.T) {
	t.Parallel()

	f := NewFormatter("")
	require.NotNil(t, f.Location)
	assert.NotNil(t, f.Now)

	f = NewFormatter("Not/AZone")
	assert.Equal(t, time.UTC, f.Location)
}
