package drive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BillingAccounts stores the local mirror of payment processor state
type BillingAccounts interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*BillingAccount, error)
	Upsert(ctx context.Context, record *BillingAccount) (*BillingAccount, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *BillingAccount) (*BillingAccount, error)
}

type billingAccounts struct {
	db *bun.DB
}

var _ BillingAccounts = (*billingAccounts)(nil)

func NewBillingAccountsRepository(db *bun.DB) BillingAccounts {
	return &billingAccounts{db: db}
}

func (r *billingAccounts) GetByUserID(ctx context.Context, userID uuid.UUID) (*BillingAccount, error) {
	record := &BillingAccount{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, newRecordNotFound(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}
	return record, nil
}

func (r *billingAccounts) Upsert(ctx context.Context, record *BillingAccount) (*BillingAccount, error) {
	return r.UpsertTx(ctx, r.db, record)
}

func (r *billingAccounts) UpsertTx(ctx context.Context, tx bun.IDB, record *BillingAccount) (*BillingAccount, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now()
	record.UpdatedAt = &now

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("customer_id = EXCLUDED.customer_id").
		Set("plan = EXCLUDED.plan").
		Set("status = EXCLUDED.status").
		Set("current_period_end = EXCLUDED.current_period_end").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}
