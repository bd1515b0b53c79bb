package drive

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

type Middleware interface {
	ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// HTTPAuthenticator is the session facing surface the controller needs
type HTTPAuthenticator interface {
	Middleware
	Login(c router.Context, payload LoginPayload) error
	StartSession(c router.Context, identity Identity) error
	Logout(c router.Context)
	SetRedirect(c router.Context)
	GetRedirect(c router.Context, def ...string) string
	GetRedirectOrDefault(c router.Context) string
	MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Magic, controller.MagicLinkShow).
		SetName("magic-link.get")
	app.Post(controller.Routes.Magic, controller.MagicLinkPost).
		SetName("magic-link.post")

	app.Get(controller.Routes.OAuth, controller.OAuthInitiate).
		SetName("oauth.get")
	app.Get(controller.Routes.OAuthCallback, controller.OAuthCallback).
		SetName("oauth-callback.get")
}

type AuthControllerRoutes struct {
	Login         string
	Logout        string
	Register      string
	Magic         string
	OAuth         string
	OAuthCallback string
}

type AuthControllerViews struct {
	Login     string
	Register  string
	Magic     string
	MagicSent string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	Providers    *ProviderSet
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:         "/login",
			Logout:        "/logout",
			Register:      "/register",
			Magic:         "/auth/magic",
			OAuth:         "/auth/oauth",
			OAuthCallback: "/auth/oauth/callback",
		},
		Views: &AuthControllerViews{
			Login:     "login",
			Register:  "register",
			Magic:     "magic_link",
			MagicSent: "magic_link_sent",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Providers == nil {
		panic("Missing ProviderSet in auth controller...")
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	provider, err := a.Providers.Get(ProviderCredentials)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	identity, err := provider.Verify(ctx.Context(), SignInRequest{
		Identifier: payload.Identifier,
		Password:   payload.Password,
	})
	if err != nil {
		a.Logger.Error("login verify: %s", err)
		errs["authentication"] = "Authentication Error"
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := a.Auther.StartSession(ctx, identity); err != nil {
		errs["authentication"] = "Authentication Error"
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterUserMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register user parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register user validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	}

	registerUser := RegisterUserHandler{repo: a.Repo}
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful user registration",
	}).Redirect("/login", fiber.StatusSeeOther)
}

// MagicLinkShow renders the request form, or finalizes the sign in when
// the emailed token is present.
func (a *AuthController) MagicLinkShow(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return ctx.Render(a.Views.Magic, router.ViewContext{
			"errors": nil,
			"record": nil,
		})
	}

	provider, err := a.Providers.Get(ProviderEmail)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	identity, err := provider.Verify(ctx.Context(), SignInRequest{Token: token})
	if err != nil {
		a.Logger.Error("magic link verify: %s", err)
		return ctx.Render(a.Views.Magic, router.ViewContext{
			"errors": map[string]string{
				"verification": "The sign in link is invalid or has expired",
			},
		})
	}

	if err := a.Auther.StartSession(ctx, identity); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	redirect := a.Auther.GetRedirect(ctx, "/")
	return ctx.Redirect(redirect, router.StatusSeeOther)
}

// MagicLinkRequestPayload holds the address to send the sign in link to
type MagicLinkRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r MagicLinkRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) MagicLinkPost(ctx router.Context) error {
	payload := new(MagicLinkRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Magic, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	provider, err := a.Providers.Get(ProviderEmail)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if _, err := provider.Initiate(ctx.Context(), SignInRequest{
		Identifier: payload.Email,
	}); err != nil {
		a.Logger.Error("magic link request: %s", err)

		viewCtx := router.ViewContext{
			"errors": map[string]string{
				"delivery": "We could not send the sign in email",
			},
			"record": payload,
		}
		if rejected := RejectedRecipients(err); len(rejected) > 0 {
			viewCtx["rejected"] = rejected
		}
		return ctx.Render(a.Views.Magic, viewCtx)
	}

	return ctx.Render(a.Views.MagicSent, router.ViewContext{
		"email": payload.Email,
	})
}

const oauthStateCookie = "oauth_state"

func (a *AuthController) OAuthInitiate(ctx router.Context) error {
	provider, err := a.Providers.Get(ProviderOAuth)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	state := uuid.NewString()
	ctx.Cookie(&router.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	init, err := provider.Initiate(ctx.Context(), SignInRequest{State: state})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Redirect(init.RedirectURL, router.StatusSeeOther)
}

func (a *AuthController) OAuthCallback(ctx router.Context) error {
	state := ctx.Query("state", "")
	if state == "" || state != ctx.Cookies(oauthStateCookie) {
		a.Logger.Error("oauth callback: state mismatch")
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	// the state is single use
	ctx.Cookie(&router.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	provider, err := a.Providers.Get(ProviderOAuth)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	identity, err := provider.Verify(ctx.Context(), SignInRequest{
		Code:  ctx.Query("code", ""),
		State: state,
	})
	if err != nil {
		a.Logger.Error("oauth callback verify: %s", err)
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	if err := a.Auther.StartSession(ctx, identity); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	redirect := a.Auther.GetRedirect(ctx, "/")
	return ctx.Redirect(redirect, router.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors to a
// field to message map for the views.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["validation"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
