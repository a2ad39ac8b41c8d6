package api_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/mock/gomock"

	"github.com/nightgig/platform/auth/internal/entity"
	"github.com/nightgig/platform/auth/internal/mocks"
	"github.com/nightgig/platform/auth/internal/rbac"
)

func (s *HandlerSuite) enableGoogle() *mocks.MockIdentityProvider {
	provider := mocks.NewMockIdentityProvider(gomock.NewController(s.T()))
	s.provider = provider
	s.build()

	return provider
}

func (s *HandlerSuite) startGoogle(provider *mocks.MockIdentityProvider) *http.Cookie {
	provider.EXPECT().
		AuthCodeURL(gomock.Any()).
		DoAndReturn(func(state string) string {
			return "https://accounts.google.test/auth?state=" + url.QueryEscape(state)
		})

	rec := s.do(http.MethodGet, "/api/auth/google", nil)
	s.Require().Equal(http.StatusFound, rec.Code)
	s.True(strings.HasPrefix(rec.Header().Get("Location"), "https://accounts.google.test/auth?state="))

	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			s.True(c.HttpOnly)
			s.Require().NotEmpty(c.Value)

			return c
		}
	}

	s.FailNow("state cookie not set")

	return nil
}

func (s *HandlerSuite) TestGoogleCallback() {
	provider := s.enableGoogle()
	state := s.startGoogle(provider)

	gomock.InOrder(
		provider.EXPECT().
			ExchangeCode(gomock.Any(), "auth-code").
			Return(&entity.ProviderTokens{AccessToken: "ya29.access"}, nil),
		provider.EXPECT().
			VerifyAccessToken(gomock.Any(), "ya29.access").
			Return(&entity.ExternalIdentity{
				Provider:      entity.LoginProviderGoogle,
				Subject:       "g-123",
				Email:         "dancer@gmail.test",
				EmailVerified: true,
				Name:          "Dancer",
			}, nil),
	)

	target := "/api/auth/google/callback?code=auth-code&state=" + url.QueryEscape(state.Value)
	rec := s.do(http.MethodGet, target, nil, withCookie(state))

	s.Require().Equal(http.StatusFound, rec.Code)

	location := rec.Header().Get("Location")
	s.True(strings.HasPrefix(location, "https://app.nightgig.test/auth/callback#accessToken="), location)
	s.NotEmpty(s.refreshCookie(rec).Value)

	user, err := s.store.UserByEmail(context.Background(), "dancer@gmail.test")
	s.Require().NoError(err)
	s.Equal(rbac.Guest, user.Role)
	s.Equal("g-123", user.GoogleID)
}

func (s *HandlerSuite) TestGoogleCallbackStateMismatch() {
	provider := s.enableGoogle()
	state := s.startGoogle(provider)

	rec := s.do(http.MethodGet, "/api/auth/google/callback?code=auth-code&state=forged", nil, withCookie(state))

	s.Require().Equal(http.StatusFound, rec.Code)
	s.Equal("https://app.nightgig.test/login?error=OAUTH_FAILED", rec.Header().Get("Location"))

	rec = s.do(http.MethodGet, "/api/auth/google/callback?code=auth-code&state="+url.QueryEscape(state.Value), nil)
	s.Equal("https://app.nightgig.test/login?error=OAUTH_FAILED", rec.Header().Get("Location"))
}

func (s *HandlerSuite) TestGoogleCallbackProviderDown() {
	provider := s.enableGoogle()
	state := s.startGoogle(provider)

	provider.EXPECT().
		ExchangeCode(gomock.Any(), gomock.Any()).
		Return(nil, entity.ErrOAuthServiceUnavailable)

	target := "/api/auth/google/callback?code=auth-code&state=" + url.QueryEscape(state.Value)
	rec := s.do(http.MethodGet, target, nil, withCookie(state))

	s.Require().Equal(http.StatusFound, rec.Code)
	s.Equal("https://app.nightgig.test/login?error=OAUTH_UNAVAILABLE", rec.Header().Get("Location"))
}

func (s *HandlerSuite) TestGoogleTokenLoginLockedAccount() {
	provider := s.enableGoogle()
	s.register("locked@gmail.test", "")

	for range 5 {
		s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "locked@gmail.test", "password": "Wrong#Pass99"})
	}

	provider.EXPECT().
		VerifyAccessToken(gomock.Any(), "ya29.valid").
		Return(&entity.ExternalIdentity{
			Provider:      entity.LoginProviderGoogle,
			Subject:       "g-9",
			Email:         "locked@gmail.test",
			EmailVerified: true,
		}, nil)

	rec := s.do(http.MethodPost, "/api/auth/google", map[string]string{"token": "ya29.valid", "email": "locked@gmail.test"})
	s.Equal(http.StatusLocked, rec.Code)
}
