package auth

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthControllerRoutes names the JSON endpoints
type AuthControllerRoutes struct {
	SendVerification string
	VerifyEmail      string
	Register         string
	Login            string
	Logout           string
	CheckSession     string
}

// AuthController exposes the account flows as a fiber JSON API
type AuthController struct {
	Debug  bool
	Logger Logger
	Repo   RepositoryManager
	Auther *Auther
	Codes  *VerificationCodes
	Mailer Mailer
	Routes *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			SendVerification: "/send-verification",
			VerifyEmail:      "/verify-email",
			Register:         "/register",
			Login:            "/login",
			Logout:           "/logout",
			CheckSession:     "/check-session",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}

	if c.Codes == nil {
		panic("Missing VerificationCodes in auth controller...")
	}

	if c.Mailer == nil {
		c.Mailer = NewLogMailer(c.Logger)
	}

	return c
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerCodes(codes *VerificationCodes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Codes = codes
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

// RegisterAuthRoutes mounts the controller endpoints on the app
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.SendVerification, controller.SendVerification)
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmail)
	app.Post(controller.Routes.Register, controller.RegisterAccount)
	app.Post(controller.Routes.Login, controller.Login)
	app.Post(controller.Routes.Logout, controller.Logout)
	app.Get(controller.Routes.CheckSession, controller.CheckSession)

	return controller
}

// SendVerification stores a handshake code and mails it
func (a *AuthController) SendVerification(ctx *fiber.Ctx) error {
	payload := new(RequestEmailVerificationMessage)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("send verification parse payload", "error", err)
		return a.renderError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	var res *RequestEmailVerificationResponse
	payload.OnResponse = func(r *RequestEmailVerificationResponse) {
		res = r
	}

	ph := NewRequestEmailVerificationHandler(a.Repo, a.Codes, a.Mailer)
	if err := ph.Execute(ctx.Context(), *payload); err != nil {
		a.Logger.Error("send verification error", "error", err)
		return a.renderError(ctx, err)
	}

	a.debugResponse(res)

	return ctx.Status(http.StatusOK).JSON(res)
}

// VerifyEmail confirms the submitted handshake code
func (a *AuthController) VerifyEmail(ctx *fiber.Ctx) error {
	payload := new(ConfirmEmailVerificationMessage)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("verify email parse payload", "error", err)
		return a.renderError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	var res *ConfirmEmailVerificationResponse
	payload.OnResponse = func(r *ConfirmEmailVerificationResponse) {
		res = r
	}

	ph := NewConfirmEmailVerificationHandler(a.Codes)
	if err := ph.Execute(ctx.Context(), *payload); err != nil {
		a.Logger.Error("verify email error", "error", err)
		return a.renderError(ctx, err)
	}

	a.debugResponse(res)

	return ctx.Status(http.StatusOK).JSON(res)
}

// RegisterAccount creates the account and role profile
func (a *AuthController) RegisterAccount(ctx *fiber.Ctx) error {
	payload := new(RegisterAccountMessage)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.renderError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	var res *RegisterAccountResponse
	payload.OnResponse = func(r *RegisterAccountResponse) {
		res = r
	}

	ph := NewRegisterAccountHandler(a.Repo, a.Codes)
	if err := ph.Execute(ctx.Context(), *payload); err != nil {
		a.Logger.Error("register account error", "error", err)
		return a.renderError(ctx, err)
	}

	a.debugResponse(res)

	return ctx.Status(http.StatusCreated).JSON(res)
}

// LoginPayload is the credentials body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Login verifies credentials and opens a session
func (a *AuthController) Login(ctx *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.renderError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	result, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("login error", "error", err)
		return a.renderError(ctx, err)
	}

	a.debugResponse(result)

	return ctx.Status(http.StatusOK).JSON(result)
}

// LogoutPayload carries the session to destroy
type LogoutPayload struct {
	SessionID string `form:"session_id" json:"session_id"`
}

// Logout destroys the server side session
func (a *AuthController) Logout(ctx *fiber.Ctx) error {
	payload := new(LogoutPayload)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("logout parse payload", "error", err)
		return a.renderError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse body").
			WithCode(errors.CodeBadRequest))
	}

	if err := a.Auther.Logout(ctx.Context(), payload.SessionID); err != nil {
		a.Logger.Error("logout error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{"logged_out": true})
}

// CheckSession resolves the session id from the X-Session-ID header or the
// session_id query param
func (a *AuthController) CheckSession(ctx *fiber.Ctx) error {
	sessionID := ctx.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = ctx.Query("session_id")
	}

	if sessionID == "" {
		return a.renderError(ctx, ErrUnableToFindSession)
	}

	session, err := a.Auther.CheckSession(ctx.Context(), sessionID)
	if err != nil {
		a.Logger.Error("check session error", "error", err)
		return a.renderError(ctx, err)
	}

	return ctx.Status(http.StatusOK).JSON(fiber.Map{
		"session_id": session.GetSessionID(),
		"account_id": session.GetAccountID(),
		"email":      session.GetEmail(),
		"role":       session.GetRole(),
	})
}

func (a *AuthController) debugResponse(res any) {
	if a.Debug {
		fmt.Println("================")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("================")
	}
}

func (a *AuthController) renderError(ctx *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	return ctx.Status(status).JSON(fiber.Map{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func statusFromCategory(category errors.Category) int {
	switch category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
