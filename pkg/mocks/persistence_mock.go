// Package mocks provides testify mocks for the persistence and event bus interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/models"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Forms(ctx context.Context) ([]*models.FormSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.FormSummary), args.Error(1)
}

func (m *MockPersistence) FormByID(ctx context.Context, id string) (*models.Form, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Form), args.Error(1)
}

func (m *MockPersistence) CreateForm(ctx context.Context, form *models.Form) error {
	args := m.Called(ctx, form)

	return args.Error(0)
}

func (m *MockPersistence) UpdateForm(ctx context.Context, form *models.Form) error {
	args := m.Called(ctx, form)

	return args.Error(0)
}

func (m *MockPersistence) DeleteForm(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) Contacts(ctx context.Context, search string) ([]*models.ContactSummary, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ContactSummary), args.Error(1)
}

func (m *MockPersistence) ContactByID(ctx context.Context, id int64) (*models.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Contact), args.Error(1)
}

func (m *MockPersistence) CreateContact(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)

	return args.Error(0)
}

func (m *MockPersistence) UpdateContact(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)

	return args.Error(0)
}

func (m *MockPersistence) DeleteContact(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) CreateWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	args := m.Called(ctx, log)

	return args.Error(0)
}

func (m *MockPersistence) WebhookLogs(ctx context.Context, formID string, limit int) ([]*models.WebhookLog, error) {
	args := m.Called(ctx, formID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WebhookLog), args.Error(1)
}

func (m *MockPersistence) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Stats), args.Error(1)
}

func (m *MockPersistence) LoadState(ctx context.Context, key string) (*models.MonitoringState, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.MonitoringState), args.Error(1)
}

func (m *MockPersistence) SaveState(ctx context.Context, state *models.MonitoringState) error {
	args := m.Called(ctx, state)

	return args.Error(0)
}

func (m *MockPersistence) AppendHistory(ctx context.Context, entry *models.MonitoringHistoryEntry, limit int) error {
	args := m.Called(ctx, entry, limit)

	return args.Error(0)
}

func (m *MockPersistence) History(ctx context.Context, key string, limit int) ([]*models.MonitoringHistoryEntry, error) {
	args := m.Called(ctx, key, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.MonitoringHistoryEntry), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
