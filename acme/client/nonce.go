package client

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/certo-acme/certo/acme"
	"github.com/certo-acme/certo/acmeerr"
	acmenet "github.com/certo-acme/certo/net"
)

// Nonce satisfies the JWS "NonceSource" interface using the nonce the session
// currently holds. The initial nonce comes from a HEAD request to newNonce;
// every later one is captured from a response's Replay-Nonce header by
// updateNonce. Nonces are single-use and opaque; the nonce register is a
// size-1 queue handed from each response to the strictly next request.
func (c *Client) Nonce() (string, error) {
	if c.nonce == "" {
		if err := c.RefreshNonce(); err != nil {
			return "", err
		}
	}
	return c.nonce, nil
}

// RefreshNonce fetches a fresh nonce from the ACME server's newNonce endpoint
// and stores it for the next signing operation.
//
// See https://tools.ietf.org/html/rfc8555#section-7.2
func (c *Client) RefreshNonce() error {
	nonceURL, ok := c.Directory.Lookup(acme.NEW_NONCE_ENDPOINT)
	if !ok {
		return acmeerr.BadDirectoryError(
			"missing %q entry in ACME server directory", acme.NEW_NONCE_ENDPOINT)
	}

	resp, err := c.net.HeadURL(nonceURL)
	if err != nil {
		return err
	}

	if !acmenet.StatusOK(resp.StatusCode) {
		return acmeerr.BadResponseError("%q returned HTTP status %d",
			acme.NEW_NONCE_ENDPOINT, resp.StatusCode)
	}

	nonce := resp.Header.Get(acme.REPLAY_NONCE_HEADER)
	if nonce == "" {
		return acmeerr.MissingHeaderError("%q returned no %q header value",
			acme.NEW_NONCE_ENDPOINT, acme.REPLAY_NONCE_HEADER)
	}

	c.nonce = nonce
	log.Debugf("Updated nonce to %q", nonce)
	return nil
}

// updateNonce replaces the session's nonce with the Replay-Nonce carried by
// a response. Every ACME response, success or error, must provide one; its
// absence indicates a broken server or transport and cannot be continued
// from.
func (c *Client) updateNonce(resp *http.Response) error {
	nonce := resp.Header.Get(acme.REPLAY_NONCE_HEADER)
	if nonce == "" {
		return acmeerr.MissingHeaderError(
			"response from %q carried no %q header",
			resp.Request.URL, acme.REPLAY_NONCE_HEADER)
	}
	c.nonce = nonce
	log.Debugf("Updated nonce to %q", nonce)
	return nil
}
