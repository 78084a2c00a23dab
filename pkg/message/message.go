// Package message renders extracted submissions into WhatsApp text.
package message

import (
	"strings"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
)

const (
	Header          = "*Nova submissão de formulário*"
	DefaultTimezone = "America/Sao_Paulo"
	timestampLayout = "02/01/2006, 15:04:05"
)

// Formatter builds submission messages. The zero value formats in UTC using the wall clock.
type Formatter struct {
	Location *time.Location
	Now      func() time.Time
}

// NewFormatter returns a formatter for the named IANA timezone, falling back to UTC
// when the zone database does not know it.
func NewFormatter(timezone string) *Formatter {
	if timezone == "" {
		timezone = DefaultTimezone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	return &Formatter{Location: loc, Now: time.Now}
}

// Format renders one line per populated field following the field order. A label that was
// already emitted suppresses later fields carrying the same label.
func (f *Formatter) Format(extracted map[string]string, fields []models.Field) string {
	var b strings.Builder

	b.WriteString(Header)
	b.WriteString("\nData/Hora: ")
	b.WriteString(f.timestamp())
	b.WriteString("\n\n")

	emitted := make(map[string]struct{})

	for _, field := range models.SortFields(fields) {
		if _, done := emitted[field.Label]; done {
			continue
		}

		value := strings.TrimSpace(extracted[field.FieldID])
		if value == "" {
			continue
		}

		emitted[field.Label] = struct{}{}

		b.WriteString("*")
		b.WriteString(field.Label)
		b.WriteString(":* ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (f *Formatter) timestamp() string {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}

	return now().In(loc).Format(timestampLayout)
}
