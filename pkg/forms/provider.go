// Package forms resolves webhook form identifiers to their configuration.
package forms

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/extract"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

// ErrFormNotFound is returned when an identifier resolves to no form.
var ErrFormNotFound = errors.New("form not found")

// Finder loads a form by id from the configuration store.
type Finder interface {
	FormByID(ctx context.Context, id string) (*models.Form, error)
}

// Provider resolves forms against the store, falling back to the legacy schema for reserved ids.
type Provider struct {
	finder           Finder
	aliases          *extract.AliasTable
	reserved         map[string]struct{}
	legacyRecipients []string
	logger           *slog.Logger
}

// Option customizes a Provider.
type Option func(*Provider)

// WithAliasTable sets the table used to build the legacy schema.
func WithAliasTable(table *extract.AliasTable) Option {
	return func(p *Provider) {
		p.aliases = table
	}
}

// WithReservedIDs replaces the identifiers that fall back to the legacy schema.
func WithReservedIDs(ids ...string) Option {
	return func(p *Provider) {
		p.reserved = make(map[string]struct{}, len(ids))

		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				p.reserved[id] = struct{}{}
			}
		}
	}
}

// WithLegacyRecipients sets the phones the legacy schema delivers to.
func WithLegacyRecipients(phones ...string) Option {
	return func(p *Provider) {
		p.legacyRecipients = nil

		for _, phone := range phones {
			if phone = strings.TrimSpace(phone); phone != "" {
				p.legacyRecipients = append(p.legacyRecipients, phone)
			}
		}
	}
}

func NewProvider(finder Finder, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		finder:   finder,
		aliases:  extract.DefaultAliasTable(),
		reserved: map[string]struct{}{models.LegacyFormID: {}},
		logger:   logger.With("module", "form_provider"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Resolve returns the configuration for formID. Every call reads the store; nothing is cached.
func (p *Provider) Resolve(ctx context.Context, formID string) (*models.Form, error) {
	_, reserved := p.reserved[formID]

	var form *models.Form

	var err error

	if p.finder != nil {
		form, err = p.finder.FormByID(ctx, formID)
	} else {
		err = persistence.ErrFormNotFound
	}

	switch {
	case err == nil:
		return form, nil
	case reserved:
		if !persistence.IsFormNotFound(err) {
			p.logger.WarnContext(ctx, "Store lookup failed, using legacy schema", "form_id", formID, "error", err)
		}

		return p.Legacy(formID), nil
	case persistence.IsFormNotFound(err):
		return nil, ErrFormNotFound
	default:
		p.logger.ErrorContext(ctx, "Store lookup failed", "form_id", formID, "error", err)

		return nil, ErrFormNotFound
	}
}

// Legacy builds the fallback schema for a reserved identifier.
func (p *Provider) Legacy(formID string) *models.Form {
	recipients := make([]models.Recipient, 0, len(p.legacyRecipients))
	for _, phone := range p.legacyRecipients {
		recipients = append(recipients, models.Recipient{Phone: phone})
	}

	return &models.Form{
		ID:          formID,
		Name:        "Elementor (legacy)",
		Description: "Built-in schema for the original single form",
		Fields:      p.aliases.Fields(),
		Recipients:  recipients,
	}
}
