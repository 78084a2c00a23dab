package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thalysguimaraes/elementor-whatsapp/pkg/persistence"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error constants are available", func(t *testing.T) {
		assert.NotNil(t, persistence.ErrFormNotFound)
		assert.NotNil(t, persistence.ErrFormAlreadyExists)
		assert.NotNil(t, persistence.ErrContactNotFound)
		assert.NotNil(t, persistence.ErrMonitoringStateNotFound)
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		formErr := persistence.NewFormError("FormByID", "contato", persistence.ErrFormNotFound)
		contactErr := persistence.NewContactError("DeleteContact", 42, persistence.ErrContactNotFound)

		assert.True(t, persistence.IsFormNotFound(formErr))
		assert.True(t, persistence.IsContactNotFound(contactErr))
		assert.False(t, persistence.IsFormAlreadyExists(formErr))

		assert.True(t, errors.Is(formErr, persistence.ErrFormNotFound))
		assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", contactErr), persistence.ErrContactNotFound))
	})

	t.Run("form error contains context", func(t *testing.T) {
		err := persistence.NewFormError("UpdateForm", "contato", persistence.ErrFormNotFound)

		assert.Contains(t, err.Error(), "UpdateForm")
		assert.Contains(t, err.Error(), "contato")
		assert.Contains(t, err.Error(), "form not found")
	})

	t.Run("form error with message", func(t *testing.T) {
		err := &persistence.FormError{Op: "CreateForm", FormID: "x", Err: persistence.ErrFormAlreadyExists, Message: "import"}

		assert.Contains(t, err.Error(), "import")
		assert.True(t, persistence.IsFormAlreadyExists(err))
	})

	t.Run("contact error contains context", func(t *testing.T) {
		err := persistence.NewContactError("ContactByID", 7, persistence.ErrContactNotFound)

		assert.Contains(t, err.Error(), "ContactByID")
		assert.Contains(t, err.Error(), "contact 7")
	})
}
