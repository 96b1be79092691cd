// Package session carries the signed-in staff member explicitly through
// request contexts and service calls.
package session

import (
	"context"
	"slices"
)

const PermReportsView = "reports:view"

// Session is the console's staff session as forwarded by the auth proxy.
type Session struct {
	Token       string   `json:"-"`
	StaffID     string   `json:"staff_id"`
	StaffName   string   `json:"staff_name"`
	BrandID     string   `json:"brand_id,omitempty"`
	Permissions []string `json:"permissions"`
}

func (s Session) Valid() bool {
	return s.Token != "" && s.StaffID != ""
}

func (s Session) Has(permission string) bool {
	return slices.Contains(s.Permissions, permission)
}

type contextKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
