// Package rbac resolves roles and permissions for the marketplace.
//
// Roles carry two independent properties: an ordinal hierarchy level used for
// "outranks" comparisons, and a permission set. The permission set of a role is
// its directly declared permissions plus everything it inherits through the
// inheritance graph. The graph is not a tree: a role may inherit from several
// roles, including roles that sit beside it in the hierarchy.
//
// An Engine is built once from a Config, validated, and fully resolved. After
// New returns, an Engine is immutable and safe for concurrent use without locks.
package rbac

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Role is a privilege tier identifier. Roles are always stored upper-case.
type Role string

// Permission is a "resource:action" capability, or Wildcard.
type Permission string

const (
	// All is an inheritance sentinel that expands to every other declared role.
	All Role = "ALL"

	// Wildcard grants every permission.
	Wildcard Permission = "*:*"
)

var ErrInvalidConfig = errors.New("invalid rbac configuration")

// Config is the static role configuration.
type Config struct {
	// Levels maps every role to its hierarchy level.
	Levels map[Role]int
	// Base maps every role to its directly declared permissions.
	Base map[Role][]Permission
	// Inherits maps a role to the roles whose permissions it also receives.
	Inherits map[Role][]Role
	// SuperRole is the only role allowed to hold Wildcard, and it must hold it.
	SuperRole Role
}

type RoleInfo struct {
	Name     Role   `json:"name"`
	Level    int    `json:"level"`
	Inherits []Role `json:"inherits,omitempty"`
}

type Engine struct {
	levels    map[Role]int
	parents   map[Role][]Role
	effective map[Role]map[Permission]struct{}
	sorted    map[Role][]Permission
	roles     []Role
}

// NormalizeRole trims and upper-cases a role coming from an untrusted source.
func NormalizeRole(s string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(s)))
}

// PermissionFor joins a resource and an action.
func PermissionFor(resource, action string) Permission {
	return Permission(resource + ":" + action)
}

// New validates cfg and resolves every role's effective permission set.
// Any configuration fault is returned wrapped in ErrInvalidConfig.
func New(cfg Config) (*Engine, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	e := &Engine{
		levels:    make(map[Role]int, len(cfg.Levels)),
		parents:   make(map[Role][]Role, len(cfg.Base)),
		effective: make(map[Role]map[Permission]struct{}, len(cfg.Base)),
		sorted:    make(map[Role][]Permission, len(cfg.Base)),
	}

	for role, level := range cfg.Levels {
		e.levels[role] = level
		e.roles = append(e.roles, role)
	}

	slices.SortFunc(e.roles, func(a, b Role) int {
		if d := e.levels[a] - e.levels[b]; d != 0 {
			return d
		}

		return strings.Compare(string(a), string(b))
	})

	for _, role := range e.roles {
		e.parents[role] = expandParents(cfg, role)
	}

	if err := e.checkCycles(); err != nil {
		return nil, err
	}

	for _, role := range e.roles {
		e.resolve(cfg, role)
	}

	for _, role := range e.roles {
		_, hasWildcard := e.effective[role][Wildcard]

		switch {
		case role == cfg.SuperRole && !hasWildcard:
			return nil, fmt.Errorf("%w: super role %s does not hold %s", ErrInvalidConfig, role, Wildcard)
		case role != cfg.SuperRole && hasWildcard:
			return nil, fmt.Errorf("%w: role %s resolves to %s", ErrInvalidConfig, role, Wildcard)
		}

		perms := make([]Permission, 0, len(e.effective[role]))
		for p := range e.effective[role] {
			perms = append(perms, p)
		}

		slices.Sort(perms)
		e.sorted[role] = perms
	}

	return e, nil
}

// MustNew is New that panics on a configuration fault.
func MustNew(cfg Config) *Engine {
	e, err := New(cfg)
	if err != nil {
		panic(err)
	}

	return e
}

func validate(cfg Config) error {
	var errs []error

	if len(cfg.Base) == 0 {
		return fmt.Errorf("%w: no roles declared", ErrInvalidConfig)
	}

	if cfg.SuperRole != "" {
		if _, ok := cfg.Base[cfg.SuperRole]; !ok {
			errs = append(errs, fmt.Errorf("%w: super role %s is not declared", ErrInvalidConfig, cfg.SuperRole))
		}
	}

	for role, perms := range cfg.Base {
		if role == All || role != NormalizeRole(string(role)) || role == "" {
			errs = append(errs, fmt.Errorf("%w: invalid role name %q", ErrInvalidConfig, role))
		}

		if _, ok := cfg.Levels[role]; !ok {
			errs = append(errs, fmt.Errorf("%w: role %s has no hierarchy level", ErrInvalidConfig, role))
		}

		seen := make(map[Permission]struct{}, len(perms))

		for _, p := range perms {
			if !validPermission(p) {
				errs = append(errs, fmt.Errorf("%w: role %s declares malformed permission %q", ErrInvalidConfig, role, p))
			}

			if _, dup := seen[p]; dup {
				errs = append(errs, fmt.Errorf("%w: role %s declares %s twice", ErrInvalidConfig, role, p))
			}

			seen[p] = struct{}{}
		}
	}

	for role := range cfg.Levels {
		if _, ok := cfg.Base[role]; !ok {
			errs = append(errs, fmt.Errorf("%w: level declared for unknown role %s", ErrInvalidConfig, role))
		}
	}

	for role, parents := range cfg.Inherits {
		if _, ok := cfg.Base[role]; !ok {
			errs = append(errs, fmt.Errorf("%w: inheritance declared for undeclared role %s", ErrInvalidConfig, role))
		}

		for _, parent := range parents {
			if parent == All {
				continue
			}

			if _, ok := cfg.Base[parent]; !ok {
				errs = append(errs, fmt.Errorf("%w: role %s inherits undeclared role %s", ErrInvalidConfig, role, parent))
			}

			if parent == role {
				errs = append(errs, fmt.Errorf("%w: role %s inherits itself", ErrInvalidConfig, role))
			}
		}
	}

	return errors.Join(errs...)
}

func validPermission(p Permission) bool {
	if p == Wildcard {
		return true
	}

	resource, action, ok := strings.Cut(string(p), ":")
	if !ok || resource == "" || action == "" {
		return false
	}

	return !strings.ContainsAny(string(p), " \t*") && !strings.Contains(action, ":")
}

func expandParents(cfg Config, role Role) []Role {
	var out []Role

	for _, parent := range cfg.Inherits[role] {
		if parent != All {
			out = append(out, parent)
			continue
		}

		for other := range cfg.Base {
			if other != role {
				out = append(out, other)
			}
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}

const (
	unvisited = iota
	visiting
	done
)

func (e *Engine) checkCycles() error {
	state := make(map[Role]int, len(e.roles))

	var visit func(role Role, path []Role) error
	visit = func(role Role, path []Role) error {
		switch state[role] {
		case visiting:
			return fmt.Errorf("%w: inheritance cycle %s", ErrInvalidConfig, formatPath(append(slices.Clone(path), role)))
		case done:
			return nil
		}

		state[role] = visiting

		// each branch owns its path so siblings never share a backing array
		next := append(slices.Clone(path), role)

		for _, parent := range e.parents[role] {
			if err := visit(parent, next); err != nil {
				return err
			}
		}

		state[role] = done

		return nil
	}

	for _, role := range e.roles {
		if err := visit(role, nil); err != nil {
			return err
		}
	}

	return nil
}

func formatPath(path []Role) string {
	parts := make([]string, len(path))
	for i, r := range path {
		parts[i] = string(r)
	}

	return strings.Join(parts, " -> ")
}

// resolve runs after checkCycles, so recursion terminates.
func (e *Engine) resolve(cfg Config, role Role) map[Permission]struct{} {
	if set, ok := e.effective[role]; ok {
		return set
	}

	set := make(map[Permission]struct{})
	for _, p := range cfg.Base[role] {
		set[p] = struct{}{}
	}

	for _, parent := range e.parents[role] {
		for p := range e.resolve(cfg, parent) {
			set[p] = struct{}{}
		}
	}

	e.effective[role] = set

	return set
}

// EffectivePermissions returns a sorted copy of role's effective permissions.
// Unknown roles have none.
func (e *Engine) EffectivePermissions(role Role) []Permission {
	return slices.Clone(e.sorted[NormalizeRole(string(role))])
}

// HasRole reports whether actual is at or above required in the hierarchy.
// Both inputs are case-normalized; an unknown role on either side is false.
func (e *Engine) HasRole(actual, required string) bool {
	actualLevel, ok := e.levels[NormalizeRole(actual)]
	if !ok {
		return false
	}

	requiredLevel, ok := e.levels[NormalizeRole(required)]
	if !ok {
		return false
	}

	return actualLevel >= requiredLevel
}

// HasPermission reports whether role holds Wildcard or exactly resource:action.
func (e *Engine) HasPermission(role, resource, action string) bool {
	set, ok := e.effective[NormalizeRole(role)]
	if !ok {
		return false
	}

	if _, ok := set[Wildcard]; ok {
		return true
	}

	_, ok = set[PermissionFor(resource, action)]

	return ok
}

// ValidateRole normalizes candidate and reports whether it is a declared role.
func (e *Engine) ValidateRole(candidate string) (Role, bool) {
	role := NormalizeRole(candidate)
	_, ok := e.levels[role]

	return role, ok
}

// GetUserPermissions lists role's effective permissions as strings.
// The result is never nil.
func (e *Engine) GetUserPermissions(role string) []string {
	perms := e.sorted[NormalizeRole(role)]

	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}

	return out
}

// Level returns the hierarchy level of role.
func (e *Engine) Level(role Role) (int, bool) {
	level, ok := e.levels[NormalizeRole(string(role))]
	return level, ok
}

// Ancestors returns every role that role inherits from, directly or transitively.
func (e *Engine) Ancestors(role Role) []Role {
	seen := make(map[Role]struct{})

	var walk func(r Role)
	walk = func(r Role) {
		for _, parent := range e.parents[r] {
			if _, ok := seen[parent]; ok {
				continue
			}

			seen[parent] = struct{}{}
			walk(parent)
		}
	}

	walk(NormalizeRole(string(role)))

	out := make([]Role, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}

	slices.Sort(out)

	return out
}

// Roles lists declared roles ordered by level, then name.
func (e *Engine) Roles() []RoleInfo {
	out := make([]RoleInfo, 0, len(e.roles))
	for _, role := range e.roles {
		out = append(out, RoleInfo{
			Name:     role,
			Level:    e.levels[role],
			Inherits: slices.Clone(e.parents[role]),
		})
	}

	return out
}
