package drive

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveUserIdentifier(t *testing.T) {
	t.Parallel()

	t.Run("Email identifiers resolve to the email column", func(t *testing.T) {
		opts := resolveUserIdentifier("user@example.com")

		assert.Len(t, opts, 1)
		assert.Equal(t, "email", opts[0].column)
		assert.Equal(t, "user@example.com", opts[0].value)
	})

	t.Run("UUID identifiers resolve to the id column", func(t *testing.T) {
		id := uuid.NewString()
		opts := resolveUserIdentifier(id)

		assert.Len(t, opts, 1)
		assert.Equal(t, "id", opts[0].column)
		assert.Equal(t, id, opts[0].value)
	})

	t.Run("Anything else tries username then id", func(t *testing.T) {
		opts := resolveUserIdentifier("adalovelace")

		assert.Len(t, opts, 2)
		assert.Equal(t, "username", opts[0].column)
		assert.Equal(t, "id", opts[1].column)
	})

	t.Run("Identifiers are trimmed", func(t *testing.T) {
		opts := resolveUserIdentifier("  user@example.com  ")

		assert.Equal(t, "email", opts[0].column)
		assert.Equal(t, "user@example.com", opts[0].value)
	})
}

func TestPrepareUserDefaults(t *testing.T) {
	t.Parallel()

	t.Run("Assigns an id when missing", func(t *testing.T) {
		record := &User{Email: "user@example.com"}

		prepareUserDefaults(record)

		assert.NotEqual(t, uuid.Nil, record.ID)
		assert.Equal(t, "user", record.Username)
	})

	t.Run("Keeps existing values", func(t *testing.T) {
		id := uuid.New()
		record := &User{ID: id, Email: "user@example.com", Username: "custom"}

		prepareUserDefaults(record)

		assert.Equal(t, id, record.ID)
		assert.Equal(t, "custom", record.Username)
	})

	t.Run("Nil record is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			prepareUserDefaults(nil)
		})
	})
}

func TestGetUsername(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "countess", getUsername("countess", "ada@example.com"))
	assert.Equal(t, "ada", getUsername("", "ada@example.com"))
	assert.Equal(t, "", getUsername("", "not-an-email"))
}
