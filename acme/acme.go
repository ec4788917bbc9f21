// Package acme provides ACME protocol constants.
package acme

const (
	// LETSENCRYPT_STAGING_DIRECTORY is the directory URL used when no other
	// ACME server is configured. Any RFC 8555 compliant directory URL works.
	LETSENCRYPT_STAGING_DIRECTORY = "https://acme-staging-v02.api.letsencrypt.org/directory"

	// See https://tools.ietf.org/html/rfc8555#section-7.1.1
	// The ACME directory key for the newNonce endpoint.
	NEW_NONCE_ENDPOINT = "newNonce"
	// The ACME directory key for the newAccount endpoint.
	NEW_ACCOUNT_ENDPOINT = "newAccount"
	// The ACME directory key for the newOrder endpoint.
	NEW_ORDER_ENDPOINT = "newOrder"

	// The HTTP response header used by ACME to communicate a fresh nonce. See
	// https://tools.ietf.org/html/rfc8555#section-6.5.1
	REPLAY_NONCE_HEADER = "Replay-Nonce"
	// The HTTP response header carrying the URL of a newly created resource.
	// For newAccount responses its value becomes the account's key identifier.
	LOCATION_HEADER = "Location"

	// The only challenge type this client selects and solves. See
	// https://tools.ietf.org/html/rfc8555#section-8.4
	CHALLENGE_TYPE_DNS01 = "dns-01"

	// Status values shared by orders, authorizations and challenges. See
	// https://tools.ietf.org/html/rfc8555#section-7.1.6
	STATUS_PENDING    = "pending"
	STATUS_PROCESSING = "processing"
	STATUS_VALID      = "valid"
	STATUS_INVALID    = "invalid"

	// The problem document type a server returns when a request's anti-replay
	// nonce was stale. See https://tools.ietf.org/html/rfc8555#section-6.5
	BAD_NONCE_PROBLEM = "urn:ietf:params:acme:error:badNonce"
)
