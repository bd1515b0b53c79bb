package drive

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Files() Files
	VerificationTokens() VerificationTokens
	BillingAccounts() BillingAccounts
}

type mngr struct {
	db                 *bun.DB
	users              Users
	files              Files
	verificationTokens VerificationTokens
	billingAccounts    BillingAccounts
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                 db,
		users:              NewUsersRepository(db),
		files:              NewFilesRepository(db),
		verificationTokens: NewVerificationTokensRepository(db),
		billingAccounts:    NewBillingAccountsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.files == nil {
		return errors.New("repository files should be initialized")
	}

	if m.verificationTokens == nil {
		return errors.New("repository verificationTokens should be initialized")
	}

	if m.billingAccounts == nil {
		return errors.New("repository billingAccounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Files() Files {
	return m.files
}

func (m mngr) VerificationTokens() VerificationTokens {
	return m.verificationTokens
}

func (m mngr) BillingAccounts() BillingAccounts {
	return m.billingAccounts
}
