// Package identity resolves the authenticated caller of a request. The
// caller principal is an opaque string; authentication itself happens in
// front of this service.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var ErrMissingIdentity = errors.New("missing caller identity")

// Provider extracts the caller principal from a request
type Provider interface {
	Caller(r *http.Request) (string, error)
}

// HeaderProvider reads the principal from a request header set by the
// authenticating proxy.
type HeaderProvider struct {
	Header string
}

func NewHeaderProvider(header string) *HeaderProvider {
	return &HeaderProvider{Header: header}
}

func (p *HeaderProvider) Caller(r *http.Request) (string, error) {
	caller := strings.TrimSpace(r.Header.Get(p.Header))
	if caller == "" {
		return "", ErrMissingIdentity
	}
	return caller, nil
}

type callerKey struct{}

func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// FromContext returns the caller stored by Middleware or WithCaller
func FromContext(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey{}).(string)
	return caller, ok && caller != ""
}

// Middleware stores the caller in the request context when the provider
// resolves one. Requests without an identity pass through; handlers that
// mutate state reject them.
func Middleware(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller, err := p.Caller(r); err == nil {
				r = r.WithContext(WithCaller(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}
}
