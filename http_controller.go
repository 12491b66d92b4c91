package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// Middleware is the subset of the HTTP authenticator route modules need to
// guard their own endpoints.
type Middleware interface {
	Impersonate(c router.Context, identifier string) (string, error)
	ProtectedRoute(allowed ...UserRole) router.MiddlewareFunc
}

// DefaultPhoneRegion is the region used to validate national phone numbers.
var DefaultPhoneRegion = "FR"

// RegisterAuthRoutes mounts the JSON auth API on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.Post(controller.Routes.Logout, controller.LogOut).
		SetName("auth.logout")

	app.Get(controller.Routes.Me,
		controller.protect()(controller.Me)).
		SetName("auth.me")

	app.Post(controller.Routes.Refresh,
		controller.protect()(controller.RefreshToken)).
		SetName("auth.refresh")

	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).
		SetName("auth.password.forgot")

	app.Put(fmt.Sprintf("%s/:token", controller.Routes.ResetPassword), controller.ResetPassword).
		SetName("auth.password.reset")

	app.Get(controller.Routes.AdminPendingUsers,
		controller.protect(RoleAdmin)(controller.AdminListPending)).
		SetName("admin.users.pending")

	app.Put(fmt.Sprintf("%s/:id/role", controller.Routes.AdminUsers),
		controller.protect(RoleAdmin)(controller.AdminChangeRole)).
		SetName("admin.users.role")

	app.Put(fmt.Sprintf("%s/:id/status", controller.Routes.AdminUsers),
		controller.protect(RoleAdmin)(controller.AdminChangeStatus)).
		SetName("admin.users.status")
}

type AuthControllerRoutes struct {
	Register          string
	Login             string
	Logout            string
	Me                string
	Refresh           string
	ForgotPassword    string
	ResetPassword     string
	AdminPendingUsers string
	AdminUsers        string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	Activity     ActivitySink
	Config       Config
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerDebug enables request dumps on auth endpoints.
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerRepo sets the repository manager backing the controller.
func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

// WithControllerAuther sets the HTTP authenticator.
func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerActivitySink sets the sink forwarded to command handlers.
func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

// WithControllerConfig sets the auth configuration.
func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Activity: noopActivitySink{},
		Config:   SimpleConfig{},
		Routes: &AuthControllerRoutes{
			Register:          "/auth/register",
			Login:             "/auth/login",
			Logout:            "/auth/logout",
			Me:                "/auth/me",
			Refresh:           "/auth/refresh-token",
			ForgotPassword:    "/auth/forgot-password",
			ResetPassword:     "/auth/reset-password",
			AdminPendingUsers: "/admin/users/pending",
			AdminUsers:        "/admin/users",
		},
	}

	c.ErrorHandler = c.jsonErrHandler

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func (a *AuthController) protect(allowed ...UserRole) router.MiddlewareFunc {
	return a.Auther.ProtectedRoute(allowed...)
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the client asked for a long session
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
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

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "success",
		"token":  token,
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "success",
	})
}

// Me returns the resolved identity behind the current session.
func (a *AuthController) Me(ctx router.Context) error {
	identity, err := a.Auther.CurrentIdentity(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "success",
		"user": map[string]any{
			"id":     identity.ID(),
			"email":  identity.Email(),
			"role":   identity.Role(),
			"status": identity.Status(),
		},
	})
}

// RefreshToken replaces the current session with a fresh one.
func (a *AuthController) RefreshToken(ctx router.Context) error {
	token, err := a.Auther.Refresh(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "success",
		"token":  token,
	})
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber(DefaultPhoneRegion))),
		validation.Field(&r.Role, validation.In(RoleBenevole, RoleDonateur, RolePartenaire)),
		validation.Field(&r.Password, validation.Required, validation.Length(DefaultMinPasswordLength, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return a.validationError(ctx, err)
	}

	var created *User

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Role:      payload.Role,
		Password:  payload.Password,
		OnResponse: func(user *User) {
			created = user
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger).
		WithMinPasswordLength(a.Config.GetMinPasswordLength())

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"status": "success",
		"user":   created,
	})
}

// ForgotPasswordPayload holds the reset request body
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forgot password parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger).
		WithResetTTL(a.Config.GetResetTokenExpiration())

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("forgot password error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= PASSWORD RESET ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("=============================")
	}

	// The secret travels to the user out of band. The response only confirms
	// the request and its expiry.
	return ctx.JSON(router.StatusOK, map[string]any{
		"status":     "success",
		"message":    "password reset instructions sent",
		"expires_at": res.ExpiresAt,
	})
}

// ResetPasswordPayload holds the new password
type ResetPasswordPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(DefaultMinPasswordLength, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	secret := ctx.Param("token")

	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	var user *User

	input := FinalizePasswordResetMessage{
		Secret:   secret,
		Password: payload.Password,
		OnResponse: func(u *User) {
			user = u
		},
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger).
		WithMinPasswordLength(a.Config.GetMinPasswordLength())

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	body := map[string]any{
		"status":  "success",
		"message": "password updated",
	}

	// A completed reset signs the user back in when the account can hold a
	// session. Accounts that cannot, pending review or suspended, keep the
	// new password and get a plain confirmation.
	if canAutoLogin(user) {
		token, err := a.Auther.Login(ctx, LoginRequest{
			Identifier: user.Email,
			Password:   payload.Password,
		})
		if err != nil {
			a.Logger.Error("reset password auto login", "error", err)
		} else {
			body["token"] = token
		}
	}

	return ctx.JSON(router.StatusOK, body)
}

// canAutoLogin reports whether the account's status allows issuing a session
// right after a completed password reset.
func canAutoLogin(user *User) bool {
	return user != nil && statusAuthError(user.Status) == nil
}

// AdminListPending lists accounts awaiting review, oldest first.
func (a *AuthController) AdminListPending(ctx router.Context) error {
	review := NewAccountReviewHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	users, err := review.ListPending(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "success",
		"results": len(users),
		"users":   users,
	})
}

// ChangeRolePayload assigns a role to an account
type ChangeRolePayload struct {
	Role string `form:"role" json:"role"`
}

// Validate will validate the payload
func (r ChangeRolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Role,
			validation.Required,
			validation.In(RoleBenevole, RoleDonateur, RolePartenaire, RoleAdmin),
		),
	)
}

func (a *AuthController) AdminChangeRole(ctx router.Context) error {
	payload := new(ChangeRolePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	var user *User

	review := NewAccountReviewHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	err := review.ChangeRole(ctx.Context(), ChangeUserRoleMessage{
		UserID: ctx.Param("id"),
		Role:   payload.Role,
		Actor:  a.actorFromRequest(ctx),
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "success",
		"user":   user,
	})
}

// ChangeStatusPayload moves an account through the status lifecycle
type ChangeStatusPayload struct {
	Status string `form:"status" json:"status"`
	Reason string `form:"reason" json:"reason"`
}

// Validate will validate the payload
func (r ChangeStatusPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Status,
			validation.Required,
			validation.In(UserStatusApproved, UserStatusSuspended, UserStatusBanned),
		),
	)
}

func (a *AuthController) AdminChangeStatus(ctx router.Context) error {
	payload := new(ChangeStatusPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(ctx, err)
	}

	var user *User

	review := NewAccountReviewHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	err := review.ChangeStatus(ctx.Context(), ChangeUserStatusMessage{
		UserID: ctx.Param("id"),
		Status: payload.Status,
		Reason: payload.Reason,
		Actor:  a.actorFromRequest(ctx),
		OnResponse: func(u *User) {
			user = u
		},
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"status": "success",
		"user":   user,
	})
}

func (a *AuthController) actorFromRequest(ctx router.Context) ActorRef {
	if identity, ok := GetRouterIdentity(ctx, ""); ok {
		return ActorRef{ID: identity.ID(), Type: "user"}
	}
	return ActorRef{Type: "system"}
}

func (a *AuthController) validationError(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"status":     "error",
		"message":    "validation failed",
		"validation": FormatValidationErrorToMap(err),
	})
}

func (a *AuthController) jsonErrHandler(c router.Context, err error) error {
	return WriteJSONError(c, err)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
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

// ValidatePhoneNumber checks the value parses as a valid number for the
// given region. Empty values pass, pair with validation.Required to force
// presence.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return errors.New("must be a valid phone number")
		}

		if !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}

		return nil
	}
}
