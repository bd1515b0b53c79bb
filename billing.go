package drive

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// BillingService keeps a local billing account per user and delegates
// everything money related to the external payment processor. Webhook
// driven state sync is out of scope; the processor remains the source of
// truth.
type BillingService struct {
	api    *client.API
	repo   RepositoryManager
	cfg    BillingConfig
	logger Logger
}

// NewBillingService builds the processor client from the config
func NewBillingService(cfg BillingConfig, repo RepositoryManager) *BillingService {
	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &BillingService{
		api:    api,
		repo:   repo,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (s *BillingService) WithLogger(l Logger) *BillingService {
	s.logger = l
	return s
}

// Account returns the caller's billing account, creating the processor
// customer on first use.
func (s *BillingService) Account(ctx context.Context, user *User) (*BillingAccount, error) {
	account, err := s.repo.BillingAccounts().GetByUserID(ctx, user.ID)
	if err == nil {
		return account, nil
	}

	if !errors.IsNotFound(err) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load billing account")
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.DisplayName()),
	}
	params.Context = ctx

	customer, err := s.api.Customers.New(params)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "payment processor rejected customer creation")
	}

	account = &BillingAccount{
		UserID:     user.ID,
		CustomerID: customer.ID,
		Plan:       s.cfg.DefaultPlan,
		Status:     BillingStatusInactive,
	}

	account, err = s.repo.BillingAccounts().Upsert(ctx, account)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist billing account")
	}

	s.logger.Info("billing account created", "user_id", user.ID, "customer_id", customer.ID)
	return account, nil
}

// PortalURL creates a processor hosted portal session so the user can
// manage their subscription, and returns its URL.
func (s *BillingService) PortalURL(ctx context.Context, user *User, returnURL string) (string, error) {
	account, err := s.Account(ctx, user)
	if err != nil {
		return "", err
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(account.CustomerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "payment processor rejected portal session")
	}

	return session.URL, nil
}
