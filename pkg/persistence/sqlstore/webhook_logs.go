package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
)

func (p *Persistence) CreateWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = p.timestamp()
	}

	result, err := p.exec.Query(ctx,
		`INSERT INTO webhook_logs (request_id, form_id, status, status_code, request, response, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		log.RequestID, log.FormID, log.Status, log.StatusCode, log.Request, log.Response, log.DurationMS,
		log.CreatedAt.UTC().Truncate(time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook log: %w", err)
	}

	log.ID = result.First().Int64("id")

	return nil
}

// WebhookLogs returns the most recent logs, optionally restricted to one form.
func (p *Persistence) WebhookLogs(ctx context.Context, formID string, limit int) ([]*models.WebhookLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, request_id, form_id, status, status_code, request, response, duration_ms, created_at
		FROM webhook_logs`
	params := []any{}

	if formID != "" {
		query += " WHERE form_id = ?"
		params = append(params, formID)
	}

	query += " ORDER BY id DESC LIMIT ?"
	params = append(params, limit)

	result, err := p.exec.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook logs: %w", err)
	}

	logs := make([]*models.WebhookLog, 0, len(result.Rows))

	for _, row := range result.Rows {
		logs = append(logs, &models.WebhookLog{
			ID:         row.Int64("id"),
			RequestID:  row.String("request_id"),
			FormID:     row.String("form_id"),
			Status:     row.String("status"),
			StatusCode: int(row.Int64("status_code")),
			Request:    row.String("request"),
			Response:   row.String("response"),
			DurationMS: row.Int64("duration_ms"),
			CreatedAt:  row.Time("created_at"),
		})
	}

	return logs, nil
}

// Stats gathers dashboard counters. Individual counter failures are logged and left at zero;
// the connection status reflects whether the store answered at all.
func (p *Persistence) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	stats := &models.Stats{ConnectionStatus: "Connected"}

	if err := p.exec.Ping(ctx); err != nil {
		stats.ConnectionStatus = "Disconnected"

		return stats, fmt.Errorf("failed to reach store: %w", err)
	}

	count := func(query string, params ...any) int {
		result, err := p.exec.Query(ctx, query, params...)
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to compute stat", "query", query, "error", err)

			return 0
		}

		return int(result.First().Int64("count"))
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UTC()

	stats.TotalForms = count("SELECT COUNT(*) AS count FROM forms")
	stats.TotalContacts = count("SELECT COUNT(*) AS count FROM contacts")
	stats.WebhooksToday = count("SELECT COUNT(*) AS count FROM webhook_logs WHERE created_at >= ?", startOfDay)

	result, err := p.exec.Query(ctx, "SELECT created_at FROM webhook_logs ORDER BY id DESC LIMIT 1")
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to get last webhook", "error", err)
	} else if row := result.First(); row != nil {
		stats.LastWebhook = row.Time("created_at")
	}

	return stats, nil
}
