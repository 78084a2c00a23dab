package sqlstore

import (
	"context"
	"fmt"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/store"
)

func (p *Persistence) LoadState(ctx context.Context, key string) (*models.MonitoringState, error) {
	result, err := p.exec.Query(ctx,
		"SELECT provider, connected, session, raw, last_changed FROM monitoring_state WHERE provider = ?", key)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitoring state: %w", err)
	}

	row := result.First()
	if row == nil {
		return nil, persistence.ErrMonitoringStateNotFound
	}

	return &models.MonitoringState{
		Key:         row.String("provider"),
		Connected:   row.Bool("connected"),
		Session:     row.Bool("session"),
		Raw:         rawOrNil(row.String("raw")),
		LastChanged: row.Time("last_changed"),
	}, nil
}

func (p *Persistence) SaveState(ctx context.Context, state *models.MonitoringState) error {
	if state.LastChanged.IsZero() {
		state.LastChanged = p.timestamp()
	}

	_, err := p.exec.Query(ctx,
		`INSERT INTO monitoring_state (provider, connected, session, raw, last_changed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (provider) DO UPDATE SET
			connected = excluded.connected,
			session = excluded.session,
			raw = excluded.raw,
			last_changed = excluded.last_changed`,
		state.Key, state.Connected, state.Session, string(state.Raw), state.LastChanged.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save monitoring state: %w", err)
	}

	return nil
}

// AppendHistory inserts the entry and trims the key's history to the newest limit rows in one batch.
func (p *Persistence) AppendHistory(ctx context.Context, entry *models.MonitoringHistoryEntry, limit int) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = p.timestamp()
	}

	if limit <= 0 {
		limit = models.MonitoringHistoryLimit
	}

	_, err := p.exec.Batch(ctx, []store.Statement{
		{
			SQL: `INSERT INTO monitoring_history (provider, connected, session, raw, recorded_at)
				VALUES (?, ?, ?, ?, ?)`,
			Params: []any{entry.Key, entry.Connected, entry.Session, string(entry.Raw), entry.RecordedAt.UTC()},
		},
		{
			SQL: `DELETE FROM monitoring_history WHERE provider = ? AND id NOT IN (
					SELECT id FROM monitoring_history WHERE provider = ? ORDER BY id DESC LIMIT ?
				)`,
			Params: []any{entry.Key, entry.Key, limit},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to append monitoring history: %w", err)
	}

	return nil
}

// History returns the newest entries first.
func (p *Persistence) History(ctx context.Context, key string, limit int) ([]*models.MonitoringHistoryEntry, error) {
	if limit <= 0 {
		limit = models.MonitoringHistoryLimit
	}

	result, err := p.exec.Query(ctx,
		`SELECT provider, connected, session, raw, recorded_at FROM monitoring_history
		WHERE provider = ? ORDER BY id DESC LIMIT ?`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitoring history: %w", err)
	}

	entries := make([]*models.MonitoringHistoryEntry, 0, len(result.Rows))

	for _, row := range result.Rows {
		entries = append(entries, &models.MonitoringHistoryEntry{
			Key:        row.String("provider"),
			Connected:  row.Bool("connected"),
			Session:    row.Bool("session"),
			Raw:        rawOrNil(row.String("raw")),
			RecordedAt: row.Time("recorded_at"),
		})
	}

	return entries, nil
}
