package services

import "context"

// Scope identifies one reconciliation call in logs and errors.
type Scope struct {
	RequestID string
	Stage     string
	Speaker   string
}

type scopeKey struct{}

// WithScope returns ctx carrying s. Empty fields of s keep the value already
// present in ctx, so a nested call can change the stage without losing the
// caller's correlation id.
func WithScope(ctx context.Context, s Scope) context.Context {
	current := ScopeFrom(ctx)
	if s.RequestID == "" {
		s.RequestID = current.RequestID
	}
	if s.Stage == "" {
		s.Stage = current.Stage
	}
	if s.Speaker == "" {
		s.Speaker = current.Speaker
	}
	if s == current {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the Scope stored in ctx, or the zero Scope.
func ScopeFrom(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}
