package keys

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/certo-acme/certo/acmeerr"
)

// Base64URL encodes data using the URL-safe base64 alphabet with no padding.
//
// RFC 8555: binary fields in the JSON objects used by ACME are encoded using
// base64url encoding described in Section 5 of RFC 4648 according to the
// profile specified in JSON Web Signature in Section 2 of RFC 7515. Trailing
// '=' characters MUST be stripped.
func Base64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode reverses Base64URL. Encoded values that include trailing
// '=' characters MUST be rejected as improperly encoded, so any input
// containing padding fails.
func Base64URLDecode(s string) ([]byte, error) {
	if strings.ContainsRune(s, '=') {
		return nil, acmeerr.DecodeError("base64url input %q contains padding", s)
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, acmeerr.DecodeError("decoding base64url input: %s", err)
	}
	return data, nil
}

// JWK is the canonical JSON Web Key form of a P-256 public key. Field order
// matters: members serialize lexicographically (crv, kty, x, y) so that the
// serialization is stable input for thumbprinting and key authorizations.
// See RFC 7638 section 3.2.
type JWK struct {
	Crv string `json:"crv"`
	Kty string `json:"kty"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// EncodeJWK builds the JWK for an uncompressed SEC1 P-256 public key
// encoding: one 0x04 prefix byte, then the 32-byte X and Y coordinates.
func EncodeJWK(point []byte) (JWK, error) {
	if len(point) != 65 {
		return JWK{}, acmeerr.KeyDecodeError(
			"public key point is %d bytes, expected 65", len(point))
	}
	if point[0] != 0x04 {
		return JWK{}, acmeerr.KeyDecodeError(
			"public key point prefix is %#x, expected 0x04 (uncompressed)", point[0])
	}
	return JWK{
		Crv: "P-256",
		Kty: "EC",
		X:   Base64URL(point[1:33]),
		Y:   Base64URL(point[33:65]),
	}, nil
}

// Canonical returns the byte-exact serialization used for hashing: keys in
// lexicographic order, no insignificant whitespace.
func (j JWK) Canonical() []byte {
	// Struct field order gives the member order; the values are plain strings
	// so marshaling cannot fail.
	out, _ := json.Marshal(j)
	return out
}
