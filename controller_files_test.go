package drive_test

import (
	"context"
	"testing"

	drive "github.com/goliatone/go-drive"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFilesFixture(t *testing.T, userID uuid.UUID) (*drive.FilesController, *MockRepositoryManager, *MockContext) {
	t.Helper()

	repo := NewMockRepositoryManager()
	controller := drive.NewFilesController(repo, drive.FilesControllerConfig{})

	mockCtx := new(MockContext)
	mockCtx.On("Context").Return(context.Background()).Maybe()
	if userID != uuid.Nil {
		mockCtx.On("Locals", "session").Return(newTestSession(t, userID)).Maybe()
	} else {
		mockCtx.On("Locals", "session").Return(nil).Maybe()
	}

	return controller, repo, mockCtx
}

func TestFilesList(t *testing.T) {
	userID := uuid.New()

	t.Run("Returns the caller's records", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		records := []*drive.File{
			{ID: uuid.New(), OwnerID: userID, Name: "notes.txt", StorageKey: "k1"},
			{ID: uuid.New(), OwnerID: userID, Name: "photo.jpg", StorageKey: "k2"},
		}

		repo.FilesRepo.On("ListByOwner", mock.Anything, userID).Return(records, nil).Once()
		mockCtx.On("JSON", router.StatusOK, map[string]any{"files": records}).Return(nil).Once()

		err := controller.List(mockCtx)

		assert.NoError(t, err)
		repo.FilesRepo.AssertExpectations(t)
		mockCtx.AssertExpectations(t)
	})

	t.Run("Rejects requests without a session", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, uuid.Nil)

		mockCtx.On("JSON", router.StatusUnauthorized, map[string]string{"error": "authentication required"}).
			Return(nil).Once()

		err := controller.List(mockCtx)

		assert.NoError(t, err)
		repo.FilesRepo.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything)
	})
}

func TestFilesShow(t *testing.T) {
	userID := uuid.New()

	t.Run("Looks the record up by primary key", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		record := &drive.File{ID: uuid.New(), OwnerID: userID, Name: "notes.txt"}

		mockCtx.On("Param", "id").Return(record.ID.String()).Once()
		repo.FilesRepo.On("GetByID", mock.Anything, record.ID).Return(record, nil).Once()
		mockCtx.On("JSON", router.StatusOK, map[string]any{"file": record}).Return(nil).Once()

		require.NoError(t, controller.Show(mockCtx))
		repo.FilesRepo.AssertExpectations(t)
	})

	t.Run("Rejects a malformed id", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		mockCtx.On("Param", "id").Return("not-a-uuid").Once()
		mockCtx.On("JSON", router.StatusBadRequest, map[string]string{"error": "invalid file id"}).
			Return(nil).Once()

		require.NoError(t, controller.Show(mockCtx))
		repo.FilesRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Missing record maps to not found", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		id := uuid.New()
		mockCtx.On("Param", "id").Return(id.String()).Once()
		repo.FilesRepo.On("GetByID", mock.Anything, id).
			Return(nil, errors.New("record not found", errors.CategoryNotFound)).Once()
		mockCtx.On("JSON", router.StatusNotFound, map[string]string{"error": "file not found"}).
			Return(nil).Once()

		require.NoError(t, controller.Show(mockCtx))
	})
}

func TestFilesShowByKey(t *testing.T) {
	userID := uuid.New()

	t.Run("Scopes the lookup to the caller", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		record := &drive.File{ID: uuid.New(), OwnerID: userID, StorageKey: "bucket/key.png"}

		mockCtx.On("Param", "key").Return("bucket/key.png").Once()
		repo.FilesRepo.On("GetByStorageKey", mock.Anything, userID, "bucket/key.png").
			Return(record, nil).Once()
		mockCtx.On("JSON", router.StatusOK, map[string]any{"file": record}).Return(nil).Once()

		require.NoError(t, controller.ShowByKey(mockCtx))
		repo.FilesRepo.AssertExpectations(t)
	})

	t.Run("Rejects an empty key", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		mockCtx.On("Param", "key").Return("").Once()
		mockCtx.On("JSON", router.StatusBadRequest, map[string]string{"error": "missing storage key"}).
			Return(nil).Once()

		require.NoError(t, controller.ShowByKey(mockCtx))
		repo.FilesRepo.AssertNotCalled(t, "GetByStorageKey", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFilesDelete(t *testing.T) {
	userID := uuid.New()

	t.Run("Deletes the caller's record and returns it", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		record := &drive.File{ID: uuid.New(), OwnerID: userID, Name: "notes.txt"}

		mockCtx.On("Param", "id").Return(record.ID.String()).Once()
		repo.FilesRepo.On("DeleteOwned", mock.Anything, userID, record.ID).Return(record, nil).Once()
		mockCtx.On("JSON", router.StatusOK, map[string]any{"file": record}).Return(nil).Once()

		require.NoError(t, controller.Delete(mockCtx))
		repo.FilesRepo.AssertExpectations(t)
	})

	t.Run("Another user's record reads as not found", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, userID)

		id := uuid.New()
		mockCtx.On("Param", "id").Return(id.String()).Once()
		repo.FilesRepo.On("DeleteOwned", mock.Anything, userID, id).
			Return(nil, errors.New("record not found", errors.CategoryNotFound)).Once()
		mockCtx.On("JSON", router.StatusNotFound, map[string]string{"error": "file not found"}).
			Return(nil).Once()

		require.NoError(t, controller.Delete(mockCtx))
	})

	t.Run("Rejects requests without a session", func(t *testing.T) {
		controller, repo, mockCtx := newFilesFixture(t, uuid.Nil)

		mockCtx.On("JSON", router.StatusUnauthorized, map[string]string{"error": "authentication required"}).
			Return(nil).Once()

		require.NoError(t, controller.Delete(mockCtx))
		repo.FilesRepo.AssertNotCalled(t, "DeleteOwned", mock.Anything, mock.Anything, mock.Anything)
	})
}
