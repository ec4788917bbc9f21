// Package net provides the HTTP plumbing shared by the ACME client and the
// remote challenge server API.
package net

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/certo-acme/certo/acmeerr"
)

const (
	version       = "0.2.0"
	userAgentBase = "certo"
	httpLibID     = "Go-http-client 1.1"
	joseContent   = "application/jose+json"
)

// UserAgent returns the User-Agent header value sent on every request,
// "<app> <version>/<http-lib-id>" per RFC 8555 section 6.1.
func UserAgent() string {
	return fmt.Sprintf("%s %s/%s", userAgentBase, version, httpLibID)
}

// StatusOK is true for any 2xx status code.
func StatusOK(code int) bool {
	return code >= 200 && code < 300
}

// ACMENet performs HTTP requests to an ACME server. All calls are blocking;
// timeouts and cancellation are the concern of the underlying http.Client.
type ACMENet struct {
	httpClient *http.Client
}

// New creates an ACMENet instance. The caBundlePath argument is an optional
// file path to one or more PEM encoded CA certificates to use as trust roots
// for HTTPS requests (e.g. the Pebble test CA). When empty the system roots
// are used.
func New(caBundlePath string) (*ACMENet, error) {
	caBundlePath = strings.TrimSpace(caBundlePath)
	if caBundlePath == "" {
		return &ACMENet{
			httpClient: http.DefaultClient,
		}, nil
	}

	pemBundle, err := os.ReadFile(caBundlePath)
	if err != nil {
		return nil, acmeerr.TransportError("reading CA bundle %q: %s", caBundlePath, err)
	}

	caBundle := x509.NewCertPool()
	caBundle.AppendCertsFromPEM(pemBundle)

	return &ACMENet{
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					RootCAs: caBundle,
				},
			},
		},
	}, nil
}

// NetResponse bundles an HTTP response with its fully read body.
type NetResponse struct {
	Response *http.Response
	RespBody []byte
}

// Do sends the given request with the common headers applied and reads the
// whole response body.
func (c *ACMENet) Do(req *http.Request) (*NetResponse, error) {
	req.Header.Set("User-Agent", UserAgent())

	if log.IsLevelEnabled(log.DebugLevel) {
		if dump, err := httputil.DumpRequest(req, true); err == nil {
			log.Debugf("Request:\n%s", dump)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, acmeerr.TransportError("%s %q: %s", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, acmeerr.TransportError("reading response from %q: %s", req.URL, err)
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("Response from %q: status %d, body:\n%s",
			req.URL, resp.StatusCode, respBody)
	}

	return &NetResponse{
		Response: resp,
		RespBody: respBody,
	}, nil
}

// HeadURL sends a HEAD request to the given URL. Only the status and headers
// of the result are meaningful.
func (c *ACMENet) HeadURL(url string) (*http.Response, error) {
	log.Debugf("Sending HEAD request to URL %q", url)
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, acmeerr.TransportError("building HEAD request for %q: %s", url, err)
	}
	req.Header.Set("User-Agent", UserAgent())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, acmeerr.TransportError("HEAD %q: %s", url, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused. HEAD bodies are empty anyway.
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp, nil
}

// PostRequest constructs a POST request to the given URL with the given body.
func (c *ACMENet) PostRequest(url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, acmeerr.TransportError("building POST request for %q: %s", url, err)
	}
	return req, nil
}

// PostURL POSTs the given body to the given URL with the JOSE content type.
// This is a wrapper combining PostRequest and Do.
func (c *ACMENet) PostURL(url string, body []byte) (*NetResponse, error) {
	log.Debugf("Sending POST request to URL %q", url)
	req, err := c.PostRequest(url, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", joseContent)
	return c.Do(req)
}

// GetURL GETs the given URL.
func (c *ACMENet) GetURL(url string) (*NetResponse, error) {
	log.Debugf("Sending GET request to URL %q", url)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, acmeerr.TransportError("building GET request for %q: %s", url, err)
	}
	return c.Do(req)
}
