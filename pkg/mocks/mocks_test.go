package mocks

import (
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/eventbus"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

var (
	_ persistence.Persistence = (*MockPersistence)(nil)
	_ eventbus.EventBus       = (*MockEventBus)(nil)
)
