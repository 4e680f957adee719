package gateway

import (
	"net/http"

	"go.uber.org/zap"
)

// authTransport is the one place that reads the credential, attaches it to
// outgoing requests, and reacts to 401 replies.
type authTransport struct {
	base    http.RoundTripper
	session *Session
	log     *zap.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok := t.session.Token()
	if tok != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Without a credential there is no session to tear down (e.g. a failed
	// login attempt).
	if resp.StatusCode == http.StatusUnauthorized && tok != "" {
		t.log.Info("gateway rejected credential, tearing down session",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
		t.session.Expire()
	}
	return resp, nil
}
