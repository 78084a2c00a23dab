// Package redisstate keeps provider monitoring state in Redis.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

const defaultPrefix = "relay:monitoring:"

// Store implements persistence.MonitoringRepository with one hash per key for the current
// snapshot and a capped list for history.
type Store struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewStore wraps an existing client.
func NewStore(client redis.UniversalClient, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		prefix: defaultPrefix,
		logger: logger.With("module", "redis_state"),
	}
}

// Open connects using a redis:// URL and verifies the connection.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewStore(client, logger), nil
}

func (s *Store) stateKey(key string) string {
	return s.prefix + "state:" + key
}

func (s *Store) historyKey(key string) string {
	return s.prefix + "history:" + key
}

func (s *Store) LoadState(ctx context.Context, key string) (*models.MonitoringState, error) {
	values, err := s.client.HGetAll(ctx, s.stateKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load monitoring state: %w", err)
	}

	if len(values) == 0 {
		return nil, persistence.ErrMonitoringStateNotFound
	}

	connected, _ := strconv.ParseBool(values["connected"])
	session, _ := strconv.ParseBool(values["session"])
	lastChanged, _ := time.Parse(time.RFC3339Nano, values["last_changed"])

	state := &models.MonitoringState{
		Key:         key,
		Connected:   connected,
		Session:     session,
		LastChanged: lastChanged,
	}

	if raw := values["raw"]; raw != "" {
		state.Raw = json.RawMessage(raw)
	}

	return state, nil
}

func (s *Store) SaveState(ctx context.Context, state *models.MonitoringState) error {
	if state.LastChanged.IsZero() {
		state.LastChanged = time.Now().UTC()
	}

	err := s.client.HSet(ctx, s.stateKey(state.Key),
		"connected", strconv.FormatBool(state.Connected),
		"session", strconv.FormatBool(state.Session),
		"raw", string(state.Raw),
		"last_changed", state.LastChanged.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save monitoring state: %w", err)
	}

	return nil
}

// AppendHistory pushes the entry and trims the list to limit entries in one transaction.
func (s *Store) AppendHistory(ctx context.Context, entry *models.MonitoringHistoryEntry, limit int) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	if limit <= 0 {
		limit = models.MonitoringHistoryLimit
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	key := s.historyKey(entry.Key)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, encoded)
		pipe.LTrim(ctx, key, 0, int64(limit-1))

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append monitoring history: %w", err)
	}

	return nil
}

// History returns the newest entries first. Undecodable entries are skipped.
func (s *Store) History(ctx context.Context, key string, limit int) ([]*models.MonitoringHistoryEntry, error) {
	if limit <= 0 {
		limit = models.MonitoringHistoryLimit
	}

	raw, err := s.client.LRange(ctx, s.historyKey(key), 0, int64(limit-1)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read monitoring history: %w", err)
	}

	entries := make([]*models.MonitoringHistoryEntry, 0, len(raw))

	for _, item := range raw {
		var entry models.MonitoringHistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.logger.WarnContext(ctx, "Skipping malformed history entry", "key", key, "error", err)

			continue
		}

		entries = append(entries, &entry)
	}

	return entries, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
