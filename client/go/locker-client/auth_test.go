package lockerclient

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTransport(t *testing.T) {
	var got *http.Request
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	tr := NewAuthTransport("user", "pass", next)
	req, err := http.NewRequest(http.MethodGet, "http://localhost/locks/a.json", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/custom")

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	user, pass, ok := got.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)
	assert.Equal(t, "application/custom", got.Header.Get("Accept"))
	assert.Equal(t, "application/json; charset=utf-8", got.Header.Get("Content-Type"))

	_, _, ok = req.BasicAuth()
	assert.False(t, ok, "caller's request must not be modified")
}

func TestNewAuthTransport_DefaultNext(t *testing.T) {
	tr := NewAuthTransport("u", "p", nil)
	assert.Equal(t, http.DefaultTransport, tr.next)
}
