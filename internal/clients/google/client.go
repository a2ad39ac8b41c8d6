package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/pkg/config"
)

const (
	defaultRetryWaitMin = 200 * time.Millisecond
	defaultRetryWaitMax = 2 * time.Second
	maxBodyBytes        = 1 << 20
)

// Client talks to the Google OAuth 2.0 and OpenID Connect endpoints.
type Client struct {
	client       *http.Client
	authURL      string
	tokenURL     string
	userInfoURL  string
	clientID     string
	clientSecret string
	redirectURI  string
	scope        string
}

func NewClient(cfg config.GoogleConfig) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryAttempts
	retryClient.RetryWaitMin = defaultRetryWaitMin
	retryClient.RetryWaitMax = defaultRetryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Timeout

	retryClient.Logger = nil

	// only transport failures are retried; a provider answer is final
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}

		return false, nil
	}

	return &Client{
		client:       retryClient.StandardClient(),
		authURL:      cfg.AuthURL,
		tokenURL:     cfg.TokenURL,
		userInfoURL:  cfg.UserInfoURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURI:  cfg.RedirectURI,
		scope:        cfg.Scope,
	}
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	IDToken     string `json:"id_token"`
}

type UserInfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) AuthCodeURL(state string) string {
	v := url.Values{}
	v.Set("response_type", "code")
	v.Set("client_id", c.clientID)
	v.Set("redirect_uri", c.redirectURI)
	v.Set("scope", c.scope)
	v.Set("state", state)
	v.Set("access_type", "online")
	v.Set("prompt", "select_account")

	sep := "?"
	if strings.Contains(c.authURL, "?") {
		sep = "&"
	}

	return c.authURL + sep + v.Encode()
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*entity.ProviderTokens, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %w", entity.ErrOAuthServiceUnavailable, err)
	}

	if tokenResp.AccessToken == "" {
		return nil, entity.ErrOAuthInvalidCode
	}

	return &entity.ProviderTokens{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		ExpiresIn:   tokenResp.ExpiresIn,
		Scope:       tokenResp.Scope,
		IDToken:     tokenResp.IDToken,
	}, nil
}

// VerifyAccessToken asks the userinfo endpoint who owns the token. A token
// Google does not accept is entity.ErrOAuthInvalidToken.
func (c *Client) VerifyAccessToken(ctx context.Context, accessToken string) (*entity.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var userInfo UserInfoResponse
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %w", entity.ErrOAuthServiceUnavailable, err)
	}

	if userInfo.Sub == "" {
		return nil, entity.ErrOAuthInvalidToken
	}

	return &entity.ExternalIdentity{
		Provider:      entity.LoginProviderGoogle,
		Subject:       userInfo.Sub,
		Email:         strings.ToLower(strings.TrimSpace(userInfo.Email)),
		EmailVerified: userInfo.EmailVerified,
		Name:          strings.TrimSpace(userInfo.Name),
		Picture:       userInfo.Picture,
	}, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrOAuthServiceUnavailable, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", entity.ErrOAuthServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ParseError(resp.StatusCode, body)
	}

	return body, nil
}

// ParseError maps a Google error reply onto the oauth error set.
func ParseError(statusCode int, body []byte) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil {
		return mapHTTPStatusToError(statusCode)
	}

	switch errorResp.Error {
	case "invalid_grant", "invalid_request":
		return entity.ErrOAuthInvalidCode
	case "invalid_token":
		return entity.ErrOAuthInvalidToken
	case "invalid_client", "unauthorized_client":
		return fmt.Errorf("%w: client rejected: %s", entity.ErrOAuthServiceUnavailable, errorResp.ErrorDescription)
	default:
		return mapHTTPStatusToError(statusCode)
	}
}

func mapHTTPStatusToError(statusCode int) error {
	switch {
	case statusCode == http.StatusBadRequest:
		return entity.ErrOAuthInvalidCode
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return entity.ErrOAuthInvalidToken
	default:
		return fmt.Errorf("%w: status %d", entity.ErrOAuthServiceUnavailable, statusCode)
	}
}

// IsUnavailable reports whether err means Google could not give an answer.
func IsUnavailable(err error) bool {
	return errors.Is(err, entity.ErrOAuthServiceUnavailable)
}
