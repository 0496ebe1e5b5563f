// Package actor identifies the user performing an inventory operation.
//
// Identities are resolved from tokens issued by the external identity provider
// and passed explicitly into every service call.
package actor

import (
	"context"
	"fmt"
	"strings"
)

// Actor represents the user performing an action.
type Actor struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
}

// FullName returns the actor's full name (first + last), trimmed.
func (a Actor) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// DisplayName returns the full name, or the id when no name is known.
func (a Actor) DisplayName() string {
	if name := a.FullName(); name != "" {
		return name
	}
	return a.ID
}

// HasRole reports whether the actor holds one of roles.
func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if strings.EqualFold(a.Role, r) {
			return true
		}
	}
	return false
}

// String returns a string representation of the actor for logging
func (a Actor) String() string {
	if a.Email == "" {
		return a.DisplayName()
	}
	return fmt.Sprintf("%s (%s)", a.DisplayName(), a.Email)
}

type contextKey string

const actorContextKey contextKey = "actor"

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, a)
}

// FromContext retrieves the Actor from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorContextKey).(Actor)
	return a, ok
}
