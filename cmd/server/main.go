package main

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	gconfig "github.com/goliatone/go-config/config"
	drive "github.com/goliatone/go-drive"
	"github.com/goliatone/go-drive/cmd/server/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var viewsFS embed.FS

type App struct {
	config  *gconfig.Container[*config.BaseConfig]
	bunDB   *bun.DB
	repo    drive.RepositoryManager
	auth    drive.Authenticator
	auther  drive.HTTPAuthenticator
	billing *drive.BillingService
	srv     router.Server[*fiber.App]
	logger  *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("drive"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAPIRoutes(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, pcfg.GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*drive.User)(nil))
	persistence.RegisterModel((*drive.File)(nil))
	persistence.RegisterModel((*drive.VerificationToken)(nil))
	persistence.RegisterModel((*drive.BillingAccount)(nil))

	client, err := persistence.New(pcfg, db, sqlitedialect.New())
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(drive.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = drive.NewRepositoryManager(client.DB())

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	templates, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return err
	}

	engine := django.NewFileSystem(http.FS(templates), ".html")

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))
	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("home", router.ViewContext{
			"title": app.Config().Name,
		})
	})

	app.srv = srv

	return nil
}

func WithAuth(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()
	acfg.SetDefaults()
	if err := acfg.Validate(); err != nil {
		return err
	}

	if err := app.repo.Validate(); err != nil {
		return err
	}

	userProvider := drive.NewUserProvider(app.repo.Users())
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := drive.NewAuthenticator(userProvider, &acfg)
	authenticator.WithLogger(app.GetLogger("auth"))
	app.auth = authenticator

	httpAuth, err := drive.NewHTTPAuthenticator(authenticator, &acfg)
	if err != nil {
		return err
	}
	httpAuth.Logger = app.GetLogger("auth:http")
	app.auther = httpAuth

	mailer, err := drive.NewSMTPMailer(acfg.Mail)
	if err != nil {
		return err
	}

	dispatcher, err := drive.NewMagicLinkDispatcher(app.repo, mailer, &acfg)
	if err != nil {
		return err
	}
	dispatcher.WithLogger(app.GetLogger("auth:magic"))

	providers := drive.NewProviderSet(
		drive.NewCredentialsProvider(userProvider),
		drive.NewEmailProvider(dispatcher),
		drive.NewOAuthProvider(acfg.OAuth, app.repo.Users()).
			WithLogger(app.GetLogger("auth:oauth")),
	)

	drive.RegisterAuthRoutes(app.srv.Router().Group("/"),
		func(ac *drive.AuthController) *drive.AuthController {
			ac.Auther = httpAuth
			ac.Repo = app.repo
			ac.Providers = providers
			ac.Logger = app.GetLogger("auth:ctrl")
			return ac
		})

	app.billing = drive.NewBillingService(acfg.Billing, app.repo).
		WithLogger(app.GetLogger("billing"))

	return nil
}

func WithAPIRoutes(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	protected := app.auther.ProtectedRoute(app.auther.MakeClientRouteAuthErrorHandler(false))

	api := app.srv.Router().Group("/api")

	files := drive.NewFilesController(app.repo, drive.FilesControllerConfig{
		SessionContextKey: acfg.ContextKey,
	}).WithLogger(app.GetLogger("files"))
	files.RegisterRoutes(api, protected)

	billing := drive.NewBillingController(app.repo, app.billing, drive.BillingControllerConfig{
		SessionContextKey: acfg.ContextKey,
		PortalReturnURL:   acfg.BaseURL + acfg.Billing.PortalReturnPath,
	}).WithLogger(app.GetLogger("billing:http"))
	billing.RegisterRoutes(api, protected)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
