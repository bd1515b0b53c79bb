package drive

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar captures the router methods used by the API controllers.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// FilesController handles the file record routes. Every route expects
// ProtectedRoute to have stored the caller's session in the context.
type FilesController struct {
	repo   RepositoryManager
	config FilesControllerConfig
	logger Logger
}

type FilesControllerConfig struct {
	// SessionContextKey is the locals key populated by ProtectedRoute
	SessionContextKey string
}

func NewFilesController(repo RepositoryManager, cfg FilesControllerConfig) *FilesController {
	if cfg.SessionContextKey == "" {
		cfg.SessionContextKey = "session"
	}

	return &FilesController{
		repo:   repo,
		config: cfg,
		logger: defLogger{},
	}
}

func (c *FilesController) WithLogger(l Logger) *FilesController {
	c.logger = l
	return c
}

// RegisterRoutes registers the file routes on the given group
func (c *FilesController) RegisterRoutes(group RouteRegistrar, mw ...router.MiddlewareFunc) {
	group.Get("/files", c.List, mw...)
	group.Get("/files/key/:key", c.ShowByKey, mw...)
	group.Get("/files/:id", c.Show, mw...)
	group.Delete("/files/:id", c.Delete, mw...)
}

// List returns the caller's file records
func (c *FilesController) List(ctx router.Context) error {
	userID, err := c.sessionUserID(ctx)
	if err != nil {
		return unauthorizedResponse(ctx)
	}

	records, err := c.repo.Files().ListByOwner(ctx.Context(), userID)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"files": records,
	})
}

// Show returns a file record by id. The lookup is by primary key only,
// without an owner filter; see repo_files.go.
func (c *FilesController) Show(ctx router.Context) error {
	if _, err := c.sessionUserID(ctx); err != nil {
		return unauthorizedResponse(ctx)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid file id",
		})
	}

	record, err := c.repo.Files().GetByID(ctx.Context(), id)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"file": record,
	})
}

// ShowByKey returns the caller's file record for a storage key
func (c *FilesController) ShowByKey(ctx router.Context) error {
	userID, err := c.sessionUserID(ctx)
	if err != nil {
		return unauthorizedResponse(ctx)
	}

	key := ctx.Param("key")
	if key == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "missing storage key",
		})
	}

	record, err := c.repo.Files().GetByStorageKey(ctx.Context(), userID, key)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"file": record,
	})
}

// Delete removes one of the caller's file records and returns it
func (c *FilesController) Delete(ctx router.Context) error {
	userID, err := c.sessionUserID(ctx)
	if err != nil {
		return unauthorizedResponse(ctx)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid file id",
		})
	}

	record, err := c.repo.Files().DeleteOwned(ctx.Context(), userID, id)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"file": record,
	})
}

func (c *FilesController) sessionUserID(ctx router.Context) (uuid.UUID, error) {
	session, ok := GetRouterSession(ctx, c.config.SessionContextKey)
	if !ok {
		return uuid.Nil, ErrUnableToFindSession
	}
	return session.GetUserUUID()
}

func (c *FilesController) handleError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "unexpected error").
			WithCode(errors.CodeInternal)
	}

	if errors.IsNotFound(richErr) {
		return ctx.JSON(router.StatusNotFound, map[string]string{
			"error": "file not found",
		})
	}

	c.logger.Error("files controller: %s", richErr)
	return ctx.JSON(router.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}

func unauthorizedResponse(ctx router.Context) error {
	return ctx.JSON(router.StatusUnauthorized, map[string]string{
		"error": "authentication required",
	})
}
