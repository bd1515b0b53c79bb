package drive

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Files exposes the per user file record operations. Every operation is
// scoped to the owner except GetByID, which looks up by primary key
// alone; see DESIGN.md before changing that.
type Files interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*File, error)
	GetByID(ctx context.Context, id uuid.UUID) (*File, error)
	GetByStorageKey(ctx context.Context, ownerID uuid.UUID, key string) (*File, error)
	DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) (*File, error)
	Create(ctx context.Context, record *File) (*File, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *File) (*File, error)
}

type files struct {
	db *bun.DB
}

var _ Files = (*files)(nil)

func NewFilesRepository(db *bun.DB) Files {
	return &files{db: db}
}

func (r *files) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*File, error) {
	var records []*File
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", ownerID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*File{}, nil
		}
		return nil, err
	}
	return records, nil
}

func (r *files) GetByID(ctx context.Context, id uuid.UUID) (*File, error) {
	record := &File{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, newRecordNotFound(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (r *files) GetByStorageKey(ctx context.Context, ownerID uuid.UUID, key string) (*File, error) {
	record := &File{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.storage_key = ?", key).
		Where("?TableAlias.owner_id = ?", ownerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, newRecordNotFound(map[string]any{
				"storage_key": key,
				"owner_id":    ownerID.String(),
			})
		}
		return nil, err
	}
	return record, nil
}

// DeleteOwned removes a record only when it belongs to the caller and
// returns the deleted record. A row owned by someone else is
// indistinguishable from a missing row.
func (r *files) DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) (*File, error) {
	record := &File{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.owner_id = ?", ownerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, newRecordNotFound(map[string]any{
				"id":       id.String(),
				"owner_id": ownerID.String(),
			})
		}
		return nil, err
	}

	_, err = r.db.NewDelete().
		Model((*File)(nil)).
		Where("id = ?", id).
		Where("owner_id = ?", ownerID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *files) Create(ctx context.Context, record *File) (*File, error) {
	return r.CreateTx(ctx, r.db, record)
}

func (r *files) CreateTx(ctx context.Context, tx bun.IDB, record *File) (*File, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}

	_, err := tx.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

// newRecordNotFound is the miss every repository returns. The generic
// repository tags its own misses with a database specific category that
// goerrors.IsNotFound does not match, so misses are normalized here and
// callers only ever see CategoryNotFound.
func newRecordNotFound(meta map[string]any) *goerrors.Error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithTextCode("RECORD_NOT_FOUND").
		WithMetadata(meta)
}
