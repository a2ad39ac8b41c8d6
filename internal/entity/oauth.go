package entity

// ExternalProfile is what the client claims about the external identity.
type ExternalProfile struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// ExternalIdentity is what the provider confirmed about a token.
type ExternalIdentity struct {
	Provider      LoginProvider
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type ProviderTokens struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	IDToken     string `json:"id_token"`
}
