package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/rbac"
	"github.com/nightgig/platform/auth/internal/service"
	"github.com/nightgig/platform/auth/pkg/config"
	"github.com/nightgig/platform/auth/pkg/logger"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStatePath   = "/api/auth/google"
	oauthStateTTL    = 10 * time.Minute
	maxBodyBytes     = 1 << 16
)

type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (entity.Session, error)
	Login(ctx context.Context, email, password string) (entity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (entity.Session, error)
	Logout(ctx context.Context, actor entity.Actor, refreshToken string, all bool) error
	LogoutWithRefreshToken(ctx context.Context, refreshToken string, all bool) error
	Me(ctx context.Context, userID uuid.UUID) (entity.User, []string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
	AssignRole(ctx context.Context, admin entity.Actor, userID uuid.UUID, role string) (entity.User, error)
	GoogleAuthURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (entity.Session, error)
	GoogleTokenLogin(ctx context.Context, externalToken string, profile entity.ExternalProfile) (entity.Session, error)
}

type Handler struct {
	s           Service
	rbac        *rbac.Engine
	cookie      config.CookieConfig
	frontendURL string
	now         func() time.Time
}

func NewHandler(s Service, engine *rbac.Engine, cfg config.Config, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}

	return &Handler{
		s:           s,
		rbac:        engine,
		cookie:      cfg.Cookie,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		now:         now,
	}
}

// @Summary Health check
// @Description Reports that the server is up
// @Tags system
// @Produce  plain
// @Success 200 {string} string "OK"
// @Router  /health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK\n"))
}

type SessionResponse struct {
	AccessToken string      `json:"accessToken"`
	TokenType   string      `json:"tokenType"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	ExpiresIn   int         `json:"expiresIn"`
	User        entity.User `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// @Summary Register an account
// @Description Creates a password account. Role may be GUEST, DJ or CLIENT and defaults to GUEST.
// @Description The refresh token is set as an HttpOnly cookie.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   request body RegisterRequest true "Account data"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} ResponseError "VALIDATION_FAILED or WEAK_PASSWORD"
// @Failure 409 {object} ResponseError "EMAIL_TAKEN"
// @Failure 429 {object} ResponseError "RATE_LIMITED"
// @Router  /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(ctx, w, err)
		return
	}

	session, err := h.s.Register(ctx, service.RegisterInput(req))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	h.sendSession(ctx, w, http.StatusCreated, session)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// @Summary Log in with email and password
// @Description Five consecutive failures lock the account for the lockout period.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   request body LoginRequest true "Credentials"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ResponseError "INVALID_CREDENTIALS with remainingAttempts"
// @Failure 423 {object} ResponseError "ACCOUNT_LOCKED with retryAfter"
// @Failure 429 {object} ResponseError "RATE_LIMITED with retryAfter"
// @Router  /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(ctx, w, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		sendErr(ctx, w, http.StatusBadRequest, nil, ResponseError{
			Message: "Email and password are required",
			Code:    CodeValidationFailed,
		})

		return
	}

	session, err := h.s.Login(ctx, req.Email, req.Password)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	h.sendSession(ctx, w, http.StatusOK, session)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// @Summary Rotate the refresh token
// @Description Reads the refresh token from the cookie, or from the body for non-browser clients.
// @Description A reused refresh token revokes every session of its owner.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   request body RefreshRequest false "Refresh token when no cookie is sent"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ResponseError "INVALID_TOKEN"
// @Router  /api/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "token")

	token := h.refreshTokenFromRequest(r)
	if token == "" {
		sendErr(ctx, w, http.StatusUnauthorized, nil, ResponseError{Message: "Refresh token not provided", Code: CodeInvalidToken})
		return
	}

	session, err := h.s.Refresh(ctx, token)
	if err != nil {
		h.clearRefreshCookie(w)
		sendServiceErr(ctx, w, err)

		return
	}

	h.sendSession(ctx, w, http.StatusOK, session)
}

// @Summary Log out
// @Description Revokes the current refresh token, or every session with all=true, and denylists the access token.
// @Description A refresh token in the cookie or body is enough when the access token has already expired.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   all query bool false "End every session of the user"
// @Param   input body RefreshRequest false "Refresh token when no cookie is sent"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ResponseError "AUTH_REQUIRED, INVALID_TOKEN"
// @Router  /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "token")

	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	refreshToken := h.refreshTokenFromRequest(r)

	var err error

	actor, ok := entity.ActorFromCtx(ctx)

	switch {
	case ok:
		err = h.s.Logout(ctx, actor, refreshToken, all)
	case refreshToken != "":
		err = h.s.LogoutWithRefreshToken(ctx, refreshToken, all)
	default:
		sendErr(ctx, w, http.StatusUnauthorized, nil, ResponseError{Message: errAuthRequiredText, Code: CodeAuthRequired})
		return
	}

	if err != nil {
		h.clearRefreshCookie(w)
		sendServiceErr(ctx, w, err)

		return
	}

	h.clearRefreshCookie(w)
	sendJSON(ctx, w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

type MeResponse struct {
	User        entity.User `json:"user"`
	Permissions []string    `json:"permissions"`
}

// @Summary Current user
// @Tags auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} ResponseError "AUTH_REQUIRED"
// @Router  /api/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := entity.ActorFromCtx(ctx)
	if !ok {
		sendErr(ctx, w, http.StatusUnauthorized, nil, ResponseError{Message: errAuthRequiredText, Code: CodeAuthRequired})
		return
	}

	user, perms, err := h.s.Me(ctx, actor.ID)
	if errors.Is(err, entity.ErrNotFound) {
		sendErr(ctx, w, http.StatusUnauthorized, err, ResponseError{Message: "Invalid or expired token", Code: CodeInvalidToken})
		return
	}

	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, MeResponse{User: user, Permissions: perms})
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// @Summary Request a password reset link
// @Description Always answers with the same message whether or not the account exists.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Router  /api/auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(ctx, w, err)
		return
	}

	if err := h.s.ForgotPassword(ctx, req.Email); err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, MessageResponse{
		Message: "If the account exists, a reset link has been sent",
	})
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// @Summary Set a new password
// @Description Consumes a reset token, clears any lockout and ends every session.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ResponseError "WEAK_PASSWORD or INVALID_TOKEN"
// @Router  /api/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(ctx, w, err)
		return
	}

	if err := h.s.ResetPassword(ctx, req.Token, req.Password); err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, MessageResponse{Message: "Password updated"})
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// @Summary Confirm an email address
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   request body VerifyEmailRequest true "Verification token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ResponseError "INVALID_TOKEN"
// @Router  /api/auth/verify-email [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "auth")

	var req VerifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(ctx, w, err)
		return
	}

	if err := h.s.VerifyEmail(ctx, req.Token); err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, MessageResponse{Message: "Email verified"})
}

// @Summary Start Google sign-in
// @Description Redirects to the Google consent screen.
// @Tags oauth
// @Success 302
// @Failure 503 {object} ResponseError "OAUTH_UNAVAILABLE"
// @Router  /api/auth/google [get]
func (h *Handler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "oauth")

	state, err := service.GenerateVerificationToken()
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	target, err := h.s.GoogleAuthURL(state)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     oauthStatePath,
		Domain:   h.cookie.Domain,
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		// the provider redirect is a cross-site top level navigation
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, target, http.StatusFound)
}

// @Summary Google sign-in callback
// @Description Exchanges the authorization code and redirects to the frontend with the access token in the fragment.
// @Tags oauth
// @Param   code  query string true "Authorization code"
// @Param   state query string true "State issued by /api/auth/google"
// @Success 302
// @Router  /api/auth/google/callback [get]
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "oauth")
	q := r.URL.Query()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Path:     oauthStatePath,
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
	})

	if q.Get("error") != "" {
		h.redirectOAuthError(w, r, CodeOAuthFailed)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || q.Get("state") == "" ||
		subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		h.redirectOAuthError(w, r, CodeOAuthFailed)
		return
	}

	session, err := h.s.GoogleCallback(ctx, q.Get("code"))
	if err != nil {
		_, body := errorResponse(err)
		h.redirectOAuthError(w, r, body.Code)

		return
	}

	h.setRefreshCookie(w, session.Tokens)

	fragment := url.Values{}
	fragment.Set("accessToken", session.Tokens.AccessToken)
	fragment.Set("expiresAt", strconv.FormatInt(session.Tokens.AccessExpiresAt.Unix(), 10))

	http.Redirect(w, r, h.frontendURL+"/auth/callback#"+fragment.Encode(), http.StatusFound)
}

type GoogleTokenRequest struct {
	Token   string `json:"token"`
	Subject string `json:"sub,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// @Summary Exchange a Google access token for a session
// @Description The token is verified with Google before any account is created or linked.
// @Tags oauth
// @Accept  json
// @Produce  json
// @Param   request body GoogleTokenRequest true "Google access token and profile"
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ResponseError "OAUTH_FAILED"
// @Failure 423 {object} ResponseError "ACCOUNT_LOCKED"
// @Failure 503 {object} ResponseError "OAUTH_UNAVAILABLE"
// @Router  /api/auth/google [post]
func (h *Handler) GoogleToken(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "oauth")

	var req GoogleTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(ctx, w, err)
		return
	}

	session, err := h.s.GoogleTokenLogin(ctx, req.Token, entity.ExternalProfile{
		Subject: req.Subject,
		Email:   req.Email,
		Name:    req.Name,
		Picture: req.Picture,
	})
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	h.sendSession(ctx, w, http.StatusOK, session)
}

type RolesResponse struct {
	Roles []rbac.RoleInfo `json:"roles"`
}

// @Summary List roles
// @Description Advisory data for UI gating. Server side gates remain authoritative.
// @Tags rbac
// @Produce  json
// @Success 200 {object} RolesResponse
// @Router  /api/rbac/roles [get]
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	sendJSON(r.Context(), w, http.StatusOK, RolesResponse{Roles: h.rbac.Roles()})
}

type PermissionsResponse struct {
	Role        string   `json:"role"`
	Valid       bool     `json:"valid"`
	Permissions []string `json:"permissions"`
}

// @Summary Effective permissions of a role
// @Description Unknown roles report valid=false and no permissions.
// @Tags rbac
// @Produce  json
// @Param   role path string true "Role name, case insensitive"
// @Success 200 {object} PermissionsResponse
// @Router  /api/rbac/permissions/{role} [get]
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	candidate := chi.URLParam(r, "role")
	role, valid := h.rbac.ValidateRole(candidate)

	sendJSON(r.Context(), w, http.StatusOK, PermissionsResponse{
		Role:        string(role),
		Valid:       valid,
		Permissions: h.rbac.GetUserPermissions(candidate),
	})
}

type AssignRoleRequest struct {
	Role string `json:"role"`
}

// @Summary Change a user's role
// @Description Ends the user's sessions so the new role applies from the next login.
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "User id"
// @Param   request body AssignRoleRequest true "New role"
// @Success 200 {object} entity.User
// @Failure 400 {object} ResponseError "VALIDATION_FAILED"
// @Failure 401 {object} ResponseError "AUTH_REQUIRED"
// @Failure 403 {object} ResponseError "ADMIN_REQUIRED"
// @Failure 404 {object} ResponseError "NOT_FOUND"
// @Router  /api/admin/users/{id}/role [put]
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	ctx := logger.SetLogType(r.Context(), "security")

	admin, ok := entity.ActorFromCtx(ctx)
	if !ok {
		sendErr(ctx, w, http.StatusUnauthorized, nil, ResponseError{Message: errAuthRequiredText, Code: CodeAuthRequired})
		return
	}

	userID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, ResponseError{Message: "Invalid user id", Code: CodeValidationFailed})
		return
	}

	var req AssignRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		sendBadRequest(ctx, w, err)
		return
	}

	user, err := h.s.AssignRole(ctx, admin, userID, req.Role)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, user)
}

type MissionResponse struct {
	Message string `json:"message"`
	Actor   string `json:"actor"`
}

// @Summary Create a mission (authorization check)
// @Description Requires the missions:create permission. Mission storage lives in another service.
// @Tags missions
// @Produce  json
// @Security BearerAuth
// @Success 201 {object} MissionResponse
// @Failure 401 {object} ResponseError "AUTH_REQUIRED"
// @Failure 403 {object} ResponseError "PERMISSION_DENIED"
// @Router  /api/missions [post]
func (h *Handler) CreateMission(w http.ResponseWriter, r *http.Request) {
	actor, _ := entity.ActorFromCtx(r.Context())

	sendJSON(r.Context(), w, http.StatusCreated, MissionResponse{Message: "Mission accepted", Actor: actor.ID.String()})
}

type MissionsResponse struct {
	Missions []string `json:"missions"`
}

// @Summary List missions (authorization check)
// @Tags missions
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} MissionsResponse
// @Failure 401 {object} ResponseError "AUTH_REQUIRED"
// @Router  /api/missions [get]
func (h *Handler) ListMissions(w http.ResponseWriter, r *http.Request) {
	sendJSON(r.Context(), w, http.StatusOK, MissionsResponse{Missions: []string{}})
}

func (h *Handler) sendSession(ctx context.Context, w http.ResponseWriter, status int, session entity.Session) {
	h.setRefreshCookie(w, session.Tokens)

	sendJSON(ctx, w, status, SessionResponse{
		AccessToken: session.Tokens.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   session.Tokens.AccessExpiresAt,
		ExpiresIn:   int(session.Tokens.AccessExpiresAt.Sub(h.now()).Seconds()),
		User:        session.User,
	})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, tokens entity.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.RefreshName,
		Value:    tokens.RefreshToken,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		Expires:  tokens.RefreshExpiresAt,
		MaxAge:   int(tokens.RefreshExpiresAt.Sub(h.now()).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.RefreshName,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(h.cookie.RefreshName); err == nil && c.Value != "" {
		return c.Value
	}

	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		return ""
	}

	return req.RefreshToken
}

func (h *Handler) redirectOAuthError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(code), http.StatusFound)
}

// decodeJSON reads a bounded JSON body. An empty body decodes to the zero value.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}

	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}
