package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/service"
)

// Machine readable error codes returned in ResponseError.Code.
const (
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeWeakPassword           = "WEAK_PASSWORD"
	CodeEmailTaken             = "EMAIL_TAKEN"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeAuthRequired           = "AUTH_REQUIRED"
	CodeAccountLocked          = "ACCOUNT_LOCKED"
	CodeRateLimited            = "RATE_LIMITED"
	CodeAdminRequired          = "ADMIN_REQUIRED"
	CodeInsufficientPrivileges = "INSUFFICIENT_PRIVILEGES"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeNotFound               = "NOT_FOUND"
	CodeOAuthFailed            = "OAUTH_FAILED"
	CodeOAuthUnavailable       = "OAUTH_UNAVAILABLE"
	CodeInternal               = "INTERNAL_ERROR"
)

const (
	errInternalText     = "Internal server error"
	errBadRequestText   = "Malformed request body"
	errAuthRequiredText = "Authentication required"
	errForbiddenText    = "You do not have access to this resource"
)

type ResponseError struct {
	Message           string   `json:"message"`
	Code              string   `json:"code"`
	RetryAfter        *int     `json:"retryAfter,omitempty"`
	RemainingAttempts *int     `json:"remainingAttempts,omitempty"`
	Violations        []string `json:"violations,omitempty"`
}

func sendErr(ctx context.Context, w http.ResponseWriter, status int, err error, body ResponseError) {
	attrs := []any{"http_code", status, "code", body.Code}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, body.Message, attrs...)
	} else {
		slog.InfoContext(ctx, body.Message, attrs...)
	}

	if body.RetryAfter != nil {
		w.Header().Set("Retry-After", strconv.Itoa(*body.RetryAfter))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err = json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode error response",
			"error", err.Error(),
			"http_code", http.StatusInternalServerError)
	}
}

func sendJSON(ctx context.Context, w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err.Error())
	}
}

func sendBadRequest(ctx context.Context, w http.ResponseWriter, err error) {
	sendErr(ctx, w, http.StatusBadRequest, err, ResponseError{Message: errBadRequestText, Code: CodeValidationFailed})
}

// sendServiceErr maps a service error onto a status code and error body.
func sendServiceErr(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	sendErr(ctx, w, status, err, body)
}

//nolint:cyclop,funlen // one flat error table
func errorResponse(err error) (int, ResponseError) {
	var (
		verr    *entity.ValidationError
		locked  *entity.LockedError
		limited *entity.RateLimitedError
		creds   *entity.CredentialsError
	)

	switch {
	case errors.As(err, &verr):
		body := ResponseError{
			Message:    "Invalid " + verr.Field,
			Code:       CodeValidationFailed,
			Violations: verr.Messages(),
		}

		if verr.Field == "password" {
			body.Message = "Password does not meet the strength requirements"
			body.Code = CodeWeakPassword
		}

		return http.StatusBadRequest, body

	case errors.As(err, &locked):
		retry := service.RetryAfterSeconds(locked.RetryAfter)

		return http.StatusLocked, ResponseError{
			Message:    "Account temporarily locked after too many failed attempts",
			Code:       CodeAccountLocked,
			RetryAfter: &retry,
		}

	case errors.As(err, &limited):
		retry := service.RetryAfterSeconds(limited.RetryAfter)

		return http.StatusTooManyRequests, ResponseError{
			Message:    "Too many requests, try again later",
			Code:       CodeRateLimited,
			RetryAfter: &retry,
		}

	case errors.As(err, &creds):
		return http.StatusUnauthorized, ResponseError{
			Message:           "Invalid email or password",
			Code:              CodeInvalidCredentials,
			RemainingAttempts: creds.Remaining,
		}

	case errors.Is(err, entity.ErrEmailTaken):
		return http.StatusConflict, ResponseError{Message: "Email is already registered", Code: CodeEmailTaken}

	case errors.Is(err, entity.ErrInvalidToken),
		errors.Is(err, entity.ErrTokenRevoked),
		errors.Is(err, entity.ErrRefreshTokenUsed):
		return http.StatusUnauthorized, ResponseError{Message: "Invalid or expired token", Code: CodeInvalidToken}

	case errors.Is(err, entity.ErrVerificationTokenInvalid):
		return http.StatusBadRequest, ResponseError{Message: "Invalid or expired link", Code: CodeInvalidToken}

	case errors.Is(err, entity.ErrOAuthServiceUnavailable), errors.Is(err, entity.ErrOAuthDisabled):
		return http.StatusServiceUnavailable, ResponseError{
			Message: "Sign-in provider is unavailable, try again later",
			Code:    CodeOAuthUnavailable,
		}

	case errors.Is(err, entity.ErrOAuthInvalidCode),
		errors.Is(err, entity.ErrOAuthInvalidToken),
		errors.Is(err, entity.ErrOAuthEmailMismatch),
		errors.Is(err, entity.ErrOAuthEmailUnverified),
		errors.Is(err, entity.ErrOAuthStateMismatch):
		return http.StatusUnauthorized, ResponseError{Message: "Sign-in with provider failed", Code: CodeOAuthFailed}

	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, ResponseError{Message: "Not found", Code: CodeNotFound}

	default:
		return http.StatusInternalServerError, ResponseError{Message: errInternalText, Code: CodeInternal}
	}
}
