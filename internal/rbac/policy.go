package rbac

import "slices"

const (
	Guest      Role = "GUEST"
	DJ         Role = "DJ"
	VerifiedDJ Role = "VERIFIED_DJ"
	Client     Role = "CLIENT"
	Partner    Role = "PARTNER"
	Curator    Role = "CURATOR"
	Operations Role = "OPERATIONS"
	Admin      Role = "ADMIN"
)

// LowestRole is assigned to accounts created without an explicit role.
const LowestRole = Guest

// SelfAssignable lists roles a user may pick at registration.
var SelfAssignable = []Role{Guest, DJ, Client}

// DefaultConfig is the marketplace role policy.
//
// OPERATIONS inherits CLIENT for support work even though CLIENT is not on its
// hierarchy path.
func DefaultConfig() Config {
	return Config{
		SuperRole: Admin,
		Levels: map[Role]int{
			Guest:      0,
			DJ:         10,
			Client:     10,
			VerifiedDJ: 20,
			Partner:    20,
			Curator:    30,
			Operations: 40,
			Admin:      100,
		},
		Base: map[Role][]Permission{
			Guest: {
				"missions:read",
				"venues:read",
				"profiles:read",
			},
			DJ: {
				"missions:apply",
				"bookings:read",
				"profiles:update",
				"availability:update",
				"serato:import",
			},
			VerifiedDJ: {
				"missions:accept",
				"payouts:read",
				"expenses:create",
				"expenses:read",
			},
			Client: {
				"missions:create",
				"missions:update",
				"bookings:create",
				"bookings:read",
				"venues:create",
				"venues:update",
				"ai:chat",
			},
			Partner: {
				"reports:read",
				"venues:manage",
				"missions:feature",
			},
			Curator: {
				"djs:verify",
				"missions:assign",
				"curation:review",
				"profiles:moderate",
			},
			Operations: {
				"missions:delete",
				"bookings:cancel",
				"expenses:approve",
				"reports:export",
				"users:read",
			},
			Admin: {
				Wildcard,
			},
		},
		Inherits: map[Role][]Role{
			DJ:         {Guest},
			VerifiedDJ: {DJ},
			Client:     {Guest},
			Partner:    {Client},
			Curator:    {VerifiedDJ},
			Operations: {Curator, Client},
			Admin:      {All},
		},
	}
}

// defaultEngine is resolved at process start; an invalid DefaultConfig
// aborts the process before any request is served.
var defaultEngine = MustNew(DefaultConfig())

// Default returns the engine built from DefaultConfig.
func Default() *Engine {
	return defaultEngine
}

func HasRole(actual, required string) bool {
	return defaultEngine.HasRole(actual, required)
}

func HasPermission(role, resource, action string) bool {
	return defaultEngine.HasPermission(role, resource, action)
}

func ValidateRole(candidate string) (Role, bool) {
	return defaultEngine.ValidateRole(candidate)
}

func GetUserPermissions(role string) []string {
	return defaultEngine.GetUserPermissions(role)
}

// IsSelfAssignable reports whether role may be chosen at registration.
func IsSelfAssignable(role Role) bool {
	return slices.Contains(SelfAssignable, role)
}
