package auth

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"

	"github.com/goliatone/go-postauth/middleware/jwtware"
)

const textCodeBadRequest = "BAD_REQUEST"

type ControllerRoutes struct {
	Register       string
	Login          string
	ConfirmAccount string
	RequestOTP     string
	ResetPassword  string
	ForgetPassword string
	Posts          string
	Comments       string
	ApproveAccount string
}

// Controller exposes the services over fiber
type Controller struct {
	Debug      bool
	Logger     Logger
	Services   *Services
	Routes     *ControllerRoutes
	ContextKey string
}

type ControllerOption func(*Controller) *Controller

// WithControllerDebug logs request payloads
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

// WithControllerLogger overrides the logger
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func NewController(svc *Services, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:     defLogger{},
		Services:   svc,
		ContextKey: DefaultContextKey,
		Routes: &ControllerRoutes{
			Register:       "/register",
			Login:          "/login",
			ConfirmAccount: "/confirm-account",
			RequestOTP:     "/otp",
			ResetPassword:  "/reset-password",
			ForgetPassword: "/forget-password",
			Posts:          "/posts",
			Comments:       "/posts/:postID/comments",
			ApproveAccount: "/accounts/approve",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Services == nil {
		panic("Missing Services in auth controller...")
	}

	return c
}

// RegisterRoutes mounts every route on app
func RegisterRoutes(app fiber.Router, svc *Services, opts ...ControllerOption) *Controller {
	c := NewController(svc, opts...)

	protected := c.ProtectedRoute()
	adminOnly := c.ProtectedRoute(func(claims *SessionClaims) error {
		if !claims.Role.CanApprove() {
			return ErrForbidden
		}
		return nil
	})

	app.Post(c.Routes.Register, c.RegisterPost)
	app.Post(c.Routes.Login, c.LoginPost)
	app.Post(c.Routes.ConfirmAccount, c.ConfirmAccountPost)
	app.Post(c.Routes.RequestOTP, c.RequestOTPPost)
	app.Post(c.Routes.ForgetPassword, c.ForgetPasswordPost)
	app.Post(c.Routes.ResetPassword, protected, c.ResetPasswordPost)
	app.Post(c.Routes.Posts, protected, c.PostQuestion)
	app.Post(c.Routes.Comments, protected, c.PostComment)
	app.Post(c.Routes.ApproveAccount, adminOnly, c.ApproveAccountPost)

	return c
}

// ProtectedRoute validates the bearer token and stores the claims in the
// fiber locals and the user context.
func (a *Controller) ProtectedRoute(checks ...func(*SessionClaims) error) fiber.Handler {
	tokens := a.Services.Tokens
	return jwtware.New(jwtware.Config{
		ContextKey: a.ContextKey,
		Validate: func(raw string) (any, error) {
			claims, err := tokens.Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		Authorize: func(raw any) error {
			claims, ok := raw.(*SessionClaims)
			if !ok {
				return ErrTokenMalformed
			}
			for _, check := range checks {
				if err := check(claims); err != nil {
					return err
				}
			}
			return nil
		},
		ContextEnricher: func(ctx context.Context, raw any) context.Context {
			if claims, ok := raw.(*SessionClaims); ok {
				return WithClaimsContext(ctx, claims)
			}
			return ctx
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				err = ErrTokenMalformed
			}
			return a.renderError(c, err)
		},
	})
}

// RegisterRequest payload. Self registration always creates contributors.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (a *Controller) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, err)
	}

	a.debugPayload("register", RegisterRequest{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  "********",
	})

	account, err := a.Services.Register.Register(c.UserContext(), RegisterAccountMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		Role:      RoleContributor,
	})
	if err != nil {
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *Controller) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err)
	}

	a.debugPayload("login", LoginRequest{Email: payload.Email, Password: "********"})

	token, err := a.Services.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
	})
}

// ConfirmAccountRequest payload
type ConfirmAccountRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Validate will run validation rules
func (r ConfirmAccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required),
	)
}

func (a *Controller) ConfirmAccountPost(c *fiber.Ctx) error {
	payload := new(ConfirmAccountRequest)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err)
	}

	account, err := a.Services.Machine.ConfirmAccount(c.UserContext(), payload.Email, payload.OTP)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"email":  account.Email,
		"status": a.Services.Machine.Status(account),
	})
}

// RequestOTPRequest payload. An empty purpose picks Confirm for
// unconfirmed accounts and Recover otherwise.
type RequestOTPRequest struct {
	Email   string     `json:"email"`
	Purpose OTPPurpose `json:"purpose"`
}

// Validate will run validation rules
func (r RequestOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Purpose, validation.In(OTPPurposeConfirm, OTPPurposeRecover)),
	)
}

func (a *Controller) RequestOTPPost(c *fiber.Ctx) error {
	payload := new(RequestOTPRequest)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, err)
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(c, err)
	}

	ctx := c.UserContext()
	purpose := payload.Purpose
	if purpose == "" {
		account, err := a.Services.Repo.Accounts().FindByEmail(ctx, payload.Email)
		if err != nil {
			return a.renderError(c, err)
		}
		purpose = OTPPurposeRecover
		if !account.IsActive {
			purpose = OTPPurposeConfirm
		}
	}

	issued, err := a.Services.Issuer.Issue(ctx, payload.Email, purpose)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"purpose":    issued.Purpose,
		"expires_at": issued.ExpiresAt.Format(time.RFC3339),
	})
}

func (a *Controller) ResetPasswordPost(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.ContextKey)
	if !ok {
		return a.renderError(c, ErrMissingSession)
	}

	payload := new(ChangePasswordMessage)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, err)
	}
	payload.Claims = claims

	if err := a.Services.ChangePassword.Execute(c.UserContext(), *payload); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

func (a *Controller) ForgetPasswordPost(c *fiber.Ctx) error {
	payload := new(RecoverPasswordMessage)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, err)
	}

	if err := a.Services.RecoverPassword.Execute(c.UserContext(), *payload); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

func (a *Controller) PostQuestion(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.ContextKey)
	if !ok {
		return a.renderError(c, ErrMissingSession)
	}

	content := map[string]any{}
	if err := c.BodyParser(&content); err != nil {
		return a.badRequest(c, err)
	}

	post, err := a.Services.Posts.PostQuestion(c.UserContext(), claims, content)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post.Document())
}

func (a *Controller) PostComment(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.ContextKey)
	if !ok {
		return a.renderError(c, ErrMissingSession)
	}

	content := map[string]any{}
	if err := c.BodyParser(&content); err != nil {
		return a.badRequest(c, err)
	}

	comment, err := a.Services.Posts.PostComment(c.UserContext(), claims, c.Params("postID"), content)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment.Document())
}

// ApproveAccountRequest payload
type ApproveAccountRequest struct {
	Email string `json:"email"`
}

func (a *Controller) ApproveAccountPost(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.ContextKey)
	if !ok {
		return a.renderError(c, ErrMissingSession)
	}

	payload := new(ApproveAccountRequest)
	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, err)
	}

	if err := validation.Validate(payload.Email, validation.Required, is.Email); err != nil {
		return a.badRequest(c, err)
	}

	account, err := a.Services.Machine.Approve(c.UserContext(), claims, payload.Email)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(account)
}

func (a *Controller) renderError(c *fiber.Ctx, err error) error {
	status := HTTPStatus(err)
	body := fiber.Map{
		"error": "Internal server error",
	}

	if richErr, ok := asRichError(err); ok {
		body["error"] = richErr.Message
		if richErr.TextCode != "" {
			body["text_code"] = richErr.TextCode
		}
	}

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(body)
}

func (a *Controller) badRequest(c *fiber.Ctx, err error) error {
	a.Logger.Debug("bad request", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":     err.Error(),
		"text_code": textCodeBadRequest,
	})
}

func (a *Controller) debugPayload(name string, payload any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug("request payload", "route", name, "payload", print.MaybePrettyJSON(payload))
}
