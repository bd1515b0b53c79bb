package drive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ConsumeVerificationTokenSQL spends a token in a single statement so two
// concurrent consumers cannot both win the row.
var ConsumeVerificationTokenSQL = `UPDATE "verification_tokens" AS "vtk"
SET
	"consumed_at" = ?
WHERE
	"vtk"."token_hash" = ?
AND "vtk"."consumed_at" IS NULL
AND "vtk"."expires_at" > ?
RETURNING *;`

// VerificationTokens stores single use magic link tokens
type VerificationTokens interface {
	Create(ctx context.Context, record *VerificationToken) (*VerificationToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *VerificationToken) (*VerificationToken, error)
	GetByHash(ctx context.Context, tokenHash string) (*VerificationToken, error)
	Consume(ctx context.Context, tokenHash string) (*VerificationToken, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type verificationTokens struct {
	db *bun.DB
}

var _ VerificationTokens = (*verificationTokens)(nil)

func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	return &verificationTokens{db: db}
}

func (r *verificationTokens) Create(ctx context.Context, record *VerificationToken) (*VerificationToken, error) {
	return r.CreateTx(ctx, r.db, record)
}

func (r *verificationTokens) CreateTx(ctx context.Context, tx bun.IDB, record *VerificationToken) (*VerificationToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := tx.NewInsert().Model(record).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *verificationTokens) GetByHash(ctx context.Context, tokenHash string) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token_hash = ?", tokenHash).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, newRecordNotFound(map[string]any{"token_hash": tokenHash})
		}
		return nil, err
	}
	return record, nil
}

// Consume marks the token spent and returns it. A token that is missing,
// already consumed, or expired yields record not found.
func (r *verificationTokens) Consume(ctx context.Context, tokenHash string) (*VerificationToken, error) {
	now := time.Now()

	record := &VerificationToken{}
	err := r.db.NewRaw(ConsumeVerificationTokenSQL, now, tokenHash, now).Scan(ctx, record)
	if err != nil {
		if isNoRows(err) {
			return nil, newRecordNotFound(map[string]any{"token_hash": tokenHash})
		}
		return nil, err
	}

	return record, nil
}

func (r *verificationTokens) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*VerificationToken)(nil)).
		Where("expires_at <= ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
