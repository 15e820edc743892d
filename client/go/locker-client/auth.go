package lockerclient

import "net/http"

const (
	// APIVersion is the locker API version requested through the Accept header.
	APIVersion = "v1"

	contentType = "application/json; charset=utf-8"
	acceptType  = "application/vnd.acquia-" + APIVersion + "+json"
)

// AuthTransport attaches the locker credentials and default headers to every
// outbound request before handing it to the wrapped transport.
type AuthTransport struct {
	username string
	password string
	next     http.RoundTripper
}

// NewAuthTransport wraps next, or http.DefaultTransport when next is nil.
func NewAuthTransport(username, password string, next http.RoundTripper) *AuthTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &AuthTransport{username: username, password: password, next: next}
}

// Username returns the configured user name.
func (t *AuthTransport) Username() string { return t.username }

// Password returns the configured password.
func (t *AuthTransport) Password() string { return t.password }

// RoundTrip implements http.RoundTripper. The caller's request is not modified.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", contentType)
	}
	if r.Header.Get("Accept") == "" {
		r.Header.Set("Accept", acceptType)
	}
	r.SetBasicAuth(t.username, t.password)

	return t.next.RoundTrip(r)
}
