package apptoken

import (
	"context"
	"net/http"
)

// TokenSource returns a bearer token for outbound requests. *Cache
// implements it.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Transport is an http.RoundTripper that authenticates every request with a
// token from Source.
type Transport struct {
	Source TokenSource

	// Base is the underlying transport. http.DefaultTransport is used when
	// nil.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.GetToken(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(authed)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// Client returns an HTTP client that sends the application token on every
// request. base may be nil.
func (c *Cache) Client(base *http.Client) *http.Client {
	client := &http.Client{}
	if base != nil {
		*client = *base
	}
	client.Transport = &Transport{Source: c, Base: client.Transport}
	return client
}
