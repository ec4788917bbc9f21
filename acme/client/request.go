package client

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/certo-acme/certo/acme"
	"github.com/certo-acme/certo/acme/resources"
)

// Response is the result of an authenticated request: the literal status
// code, the response headers and the body. No status-class coercion happens
// here; callers decide what counts as success.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Request sends an authenticated POST to an ACME resource. When resource
// names an entry in the directory the mapped URL is used; otherwise resource
// is treated as a literal URL (authorization and challenge URLs are
// server-chosen per order and never appear in the directory).
//
// The request is signed with the session's current nonce and, once the
// account exists, its account URL as the JWS kid; before that the JWK is
// embedded. After any response the session's nonce is replaced from the
// Replay-Nonce header and, for newAccount, the Location header is captured
// as the account URL.
//
// If the server rejects the request with a badNonce problem the request is
// re-signed once with the nonce carried on that very response, then given up
// on.
func (c *Client) Request(resource string, payload []byte) (*Response, error) {
	resp, err := c.signedPost(resource, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		if prob, ok := resources.ProblemFromBody(resp.Body); ok && prob.IsBadNonce() {
			log.Infof("Server rejected nonce for %q, retrying once with a fresh one",
				resource)
			return c.signedPost(resource, payload)
		}
	}

	return resp, nil
}

// PostAsGet fetches a protected resource with a signed POST whose wire
// payload is the empty string. See https://tools.ietf.org/html/rfc8555#section-6.3
func (c *Client) PostAsGet(url string) (*Response, error) {
	return c.Request(url, []byte{})
}

func (c *Client) signedPost(resource string, payload []byte) (*Response, error) {
	targetURL := resource
	if mapped, ok := c.Directory.Lookup(resource); ok {
		targetURL = mapped
	}

	signResult, err := c.Sign(targetURL, payload, &SigningOptions{
		EmbedKey: c.ID == "",
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.net.PostURL(targetURL, signResult.SerializedJWS)
	if err != nil {
		return nil, err
	}

	// Every response, success or error, hands the session its next nonce.
	if err := c.updateNonce(resp.Response); err != nil {
		return nil, err
	}

	if resource == acme.NEW_ACCOUNT_ENDPOINT {
		if loc := resp.Response.Header.Get(acme.LOCATION_HEADER); loc != "" {
			c.ID = loc
			log.Debugf("Captured account URL %q", c.ID)
		}
	}

	return &Response{
		StatusCode: resp.Response.StatusCode,
		Header:     resp.Response.Header,
		Body:       resp.RespBody,
	}, nil
}
