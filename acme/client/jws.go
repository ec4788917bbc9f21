package client

import (
	jose "github.com/go-jose/go-jose/v4"

	"github.com/certo-acme/certo/acmeerr"
)

// SigningOptions allows specifying signature related options when calling the
// Client's Sign function.
type SigningOptions struct {
	// If true, embed the account's public key as a JWK in the signed JWS
	// instead of using a KeyID header. This is required for newAccount
	// requests, which are authenticated before a key identifier exists.
	// Setting EmbedKey to true is mutually exclusive with a non-empty KeyID.
	EmbedKey bool
	// If not empty, a KeyID value to use for the JWS Key ID header to
	// identify the ACME account. If empty the session's account URL is used.
	// Providing a KeyID is mutually exclusive with setting EmbedKey to true.
	KeyID string
	// NonceSource provides the anti-replay nonce for the produced JWS. If nil
	// the Client itself is used.
	NonceSource jose.NonceSource
}

// validate checks that the SigningOptions are sensible, enforcing the
// mutually exclusive KeyID and EmbedKey rule. It must only be called after
// defaults are populated.
func (opts *SigningOptions) validate() error {
	if opts.KeyID != "" && opts.EmbedKey {
		return acmeerr.SigningError("cannot specify both KeyID and EmbedKey")
	}
	if opts.KeyID == "" && !opts.EmbedKey {
		return acmeerr.SigningError("you must specify a KeyID or EmbedKey")
	}
	if opts.NonceSource == nil {
		return acmeerr.SigningError("you must specify a NonceSource")
	}
	return nil
}

// SignResult holds the input and output from a Sign operation.
type SignResult struct {
	// The url argument given to Sign.
	InputURL string
	// The data argument given to Sign.
	InputData []byte
	// The JWS produced by signing the given data.
	JWS *jose.JSONWebSignature
	// The JWS in flattened serialized form, ready to POST.
	SerializedJWS []byte
}

// Sign produces the flattened JWS envelope for an ACME request: protected
// header with alg ES256, the supplied nonce and target URL, and exactly one
// of an embedded JWK or a kid. An empty data argument produces the empty wire
// payload used for POST-as-GET requests.
func (c *Client) Sign(url string, data []byte, opts *SigningOptions) (*SignResult, error) {
	if opts == nil {
		opts = &SigningOptions{}
	}

	if opts.NonceSource == nil {
		opts.NonceSource = c
	}

	// Unless the caller asked for an embedded JWK or named a key ID, requests
	// authenticate with the session's account URL.
	if !opts.EmbedKey && opts.KeyID == "" {
		if c.ID == "" {
			return nil, acmeerr.SigningError(
				"session has no account URL yet; sign with EmbedKey instead")
		}
		opts.KeyID = c.ID
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.EmbedKey {
		return c.signEmbedded(url, data, *opts)
	}
	return c.signKeyID(url, data, *opts)
}

func (c *Client) signEmbedded(url string, data []byte, opts SigningOptions) (*SignResult, error) {
	signingKey := c.Keys.SigningKey("")

	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: opts.NonceSource,
		EmbedJWK:    true,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	})
	if err != nil {
		return nil, acmeerr.SigningError("creating signer: %s", err)
	}

	return sign(signer, url, data)
}

func (c *Client) signKeyID(url string, data []byte, opts SigningOptions) (*SignResult, error) {
	signingKey := c.Keys.SigningKey(opts.KeyID)

	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: opts.NonceSource,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	})
	if err != nil {
		return nil, acmeerr.SigningError("creating signer: %s", err)
	}

	return sign(signer, url, data)
}

func sign(signer jose.Signer, url string, data []byte) (*SignResult, error) {
	signed, err := signer.Sign(data)
	if err != nil {
		return nil, acmeerr.SigningError("signing request for %q: %s", url, err)
	}

	serialized := []byte(signed.FullSerialize())

	return &SignResult{
		InputURL:      url,
		InputData:     data,
		JWS:           signed,
		SerializedJWS: serialized,
	}, nil
}
