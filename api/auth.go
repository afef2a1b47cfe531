package api

import "net/http"

// Authenticator resolves the user a request acts for. There is no real
// credential check here; identity selects which subtree of the store the
// request touches. Swap in a token-validating implementation to go beyond
// single-household deployments.
type Authenticator interface {
	UserID(r *http.Request) string
}

// HeaderAuth trusts the X-User-ID header and falls back to a configured
// default when the header is empty.
type HeaderAuth struct {
	Fallback string
}

func (a HeaderAuth) UserID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return a.Fallback
}
