package drive

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// BillingController exposes the caller's billing account and the
// processor hosted management portal.
type BillingController struct {
	repo    RepositoryManager
	billing *BillingService
	config  BillingControllerConfig
	logger  Logger
}

type BillingControllerConfig struct {
	// SessionContextKey is the locals key populated by ProtectedRoute
	SessionContextKey string
	// PortalReturnURL is where the processor sends the user back to
	PortalReturnURL string
}

func NewBillingController(repo RepositoryManager, billing *BillingService, cfg BillingControllerConfig) *BillingController {
	if cfg.SessionContextKey == "" {
		cfg.SessionContextKey = "session"
	}

	return &BillingController{
		repo:    repo,
		billing: billing,
		config:  cfg,
		logger:  defLogger{},
	}
}

func (c *BillingController) WithLogger(l Logger) *BillingController {
	c.logger = l
	return c
}

// RegisterRoutes registers the billing routes on the given group
func (c *BillingController) RegisterRoutes(group RouteRegistrar, mw ...router.MiddlewareFunc) {
	group.Get("/billing", c.Show, mw...)
	group.Post("/billing/portal", c.PortalPost, mw...)
}

// Show returns the caller's billing account, creating it on first use
func (c *BillingController) Show(ctx router.Context) error {
	user, err := c.sessionUser(ctx)
	if err != nil {
		return unauthorizedResponse(ctx)
	}

	account, err := c.billing.Account(ctx.Context(), user)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"billing": account,
	})
}

// PortalPost creates a portal session and returns its URL
func (c *BillingController) PortalPost(ctx router.Context) error {
	user, err := c.sessionUser(ctx)
	if err != nil {
		return unauthorizedResponse(ctx)
	}

	url, err := c.billing.PortalURL(ctx.Context(), user, c.config.PortalReturnURL)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"url": url,
	})
}

func (c *BillingController) sessionUser(ctx router.Context) (*User, error) {
	session, ok := GetRouterSession(ctx, c.config.SessionContextKey)
	if !ok {
		return nil, ErrUnableToFindSession
	}

	return c.repo.Users().GetByIdentifier(ctx.Context(), session.GetUserID())
}

func (c *BillingController) handleError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "unexpected error").
			WithCode(errors.CodeInternal)
	}

	c.logger.Error("billing controller: %s", richErr)

	if richErr.Category == errors.CategoryOperation {
		return ctx.JSON(router.StatusBadGateway, map[string]string{
			"error": "billing provider unavailable",
		})
	}

	return ctx.JSON(router.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}
