package drive_test

import (
	"context"
	"database/sql"
	"testing"

	drive "github.com/goliatone/go-drive"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec(`
CREATE TABLE users (
	id UUID PRIMARY KEY,
	first_name VARCHAR(200),
	last_name VARCHAR(200),
	username VARCHAR(100) NOT NULL UNIQUE,
	profile_picture TEXT,
	email VARCHAR(100) NOT NULL UNIQUE,
	password_hash TEXT,
	is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
	login_attempts INTEGER NOT NULL DEFAULT 0,
	login_attempt_at TIMESTAMP,
	loggedin_at TIMESTAMP,
	metadata JSONB,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMP
);

CREATE TABLE files (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES users (id),
	storage_key VARCHAR(255) NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL,
	mime_type VARCHAR(127),
	size BIGINT NOT NULL DEFAULT 0,
	metadata JSONB,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMP
);
`)
	require.NoError(t, err)

	return db
}

func seedUser(t *testing.T, db *bun.DB, email string) *drive.User {
	t.Helper()

	user := &drive.User{
		ID:    uuid.New(),
		Email: email,
	}
	_, err := drive.NewUsersRepository(db).Register(context.Background(), user)
	require.NoError(t, err)
	return user
}

func seedFile(t *testing.T, db *bun.DB, owner *drive.User, key string) *drive.File {
	t.Helper()

	record, err := drive.NewFilesRepository(db).Create(context.Background(), &drive.File{
		OwnerID:    owner.ID,
		StorageKey: key,
		Name:       key + ".txt",
		MimeType:   "text/plain",
		Size:       42,
	})
	require.NoError(t, err)
	return record
}

func TestFilesRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("list is scoped to the owner", func(t *testing.T) {
		db := setupDB(t)
		files := drive.NewFilesRepository(db)

		alice := seedUser(t, db, "alice@example.com")
		bob := seedUser(t, db, "bob@example.com")
		seedFile(t, db, alice, "a-one")
		seedFile(t, db, alice, "a-two")
		seedFile(t, db, bob, "b-one")

		records, err := files.ListByOwner(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, records, 2)
		for _, record := range records {
			assert.Equal(t, alice.ID, record.OwnerID)
		}
	})

	t.Run("get by unknown id is not found", func(t *testing.T) {
		db := setupDB(t)
		files := drive.NewFilesRepository(db)

		_, err := files.GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("get by storage key is scoped to the owner", func(t *testing.T) {
		db := setupDB(t)
		files := drive.NewFilesRepository(db)

		alice := seedUser(t, db, "alice@example.com")
		bob := seedUser(t, db, "bob@example.com")
		seedFile(t, db, bob, "b-one")

		_, err := files.GetByStorageKey(ctx, alice.ID, "b-one")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))

		record, err := files.GetByStorageKey(ctx, bob.ID, "b-one")
		require.NoError(t, err)
		assert.Equal(t, "b-one", record.StorageKey)
	})

	t.Run("delete by another user is not found and leaves the row", func(t *testing.T) {
		db := setupDB(t)
		files := drive.NewFilesRepository(db)

		alice := seedUser(t, db, "alice@example.com")
		bob := seedUser(t, db, "bob@example.com")
		record := seedFile(t, db, alice, "a-one")

		_, err := files.DeleteOwned(ctx, bob.ID, record.ID)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))

		kept, err := files.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, kept.ID)
	})

	t.Run("delete by the owner returns the record and hides it", func(t *testing.T) {
		db := setupDB(t)
		files := drive.NewFilesRepository(db)

		alice := seedUser(t, db, "alice@example.com")
		record := seedFile(t, db, alice, "a-one")

		deleted, err := files.DeleteOwned(ctx, alice.ID, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, deleted.ID)

		_, err = files.GetByID(ctx, record.ID)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestUsersRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	users := drive.NewUsersRepository(db)

	_, err := users.GetByIdentifier(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
