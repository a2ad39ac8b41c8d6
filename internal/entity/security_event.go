package entity

import "time"

// SecurityCategoryPrefix starts every security event category.
const SecurityCategoryPrefix = "security."

type SecurityCategory string

const (
	CategoryAuthnDenied    SecurityCategory = "authn.denied"
	CategoryAuthzDenied    SecurityCategory = "authz.denied"
	CategoryLoginFailed    SecurityCategory = "login.failed"
	CategoryLoginSucceeded SecurityCategory = "login.succeeded"
	CategoryAccountLocked  SecurityCategory = "account.locked"
	CategoryLockedAttempt  SecurityCategory = "account.locked_attempt"
	CategoryRateLimited    SecurityCategory = "ratelimit.exceeded"
	CategoryTokenReuse     SecurityCategory = "token.reuse"
	CategoryTokenRevoked   SecurityCategory = "token.revoked"
	CategoryPasswordReset  SecurityCategory = "password.reset"
	CategoryRoleChanged    SecurityCategory = "role.changed"
	CategoryOAuthDenied    SecurityCategory = "oauth.denied"
	CategoryOAuthLinked    SecurityCategory = "oauth.linked"
	CategoryAccountCreated SecurityCategory = "account.created"
	CategoryEmailVerified  SecurityCategory = "email.verified"
)

type SecurityOutcome string

const (
	OutcomeAllowed SecurityOutcome = "allowed"
	OutcomeDenied  SecurityOutcome = "denied"
)

const AnonymousActor = "anonymous"

type SecurityEvent struct {
	Category  SecurityCategory `json:"category"`
	Actor     string           `json:"actor"`
	Role      string           `json:"role,omitempty"`
	Resource  string           `json:"resource,omitempty"`
	Action    string           `json:"action,omitempty"`
	Outcome   SecurityOutcome  `json:"outcome"`
	Code      string           `json:"code,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Method    string           `json:"method,omitempty"`
	Path      string           `json:"path,omitempty"`
	UserAgent string           `json:"userAgent,omitempty"`
	IP        string           `json:"ip,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func (e SecurityEvent) Name() string {
	return SecurityCategoryPrefix + string(e.Category)
}
