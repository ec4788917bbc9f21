// Package keys handles the account keypair: P-256 generation, PKCS#8
// serialization, JWKs and key authorizations.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/certo-acme/certo/acmeerr"
)

// KeyPair is an ECDSA P-256 account key in its two representations: the
// in-process signing handle and the PKCS#8 blob it was generated from or
// parsed out of. The two are produced together and must stay in lockstep;
// persistence uses the PKCS#8 blob exclusively.
type KeyPair struct {
	// The signing handle used for JWS operations.
	Signer *ecdsa.PrivateKey
	// The DER encoded PKCS#8 form of the same private key as Signer.
	PKCS8 []byte
}

// NewKeyPair generates a fresh P-256 keypair and its PKCS#8 serialization.
func NewKeyPair() (*KeyPair, error) {
	privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, acmeerr.KeyGenError("generating P-256 key: %s", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return nil, acmeerr.KeyGenError("encoding P-256 key to PKCS#8: %s", err)
	}
	return &KeyPair{
		Signer: privKey,
		PKCS8:  der,
	}, nil
}

// LoadKeyPair parses a PKCS#8 blob produced by NewKeyPair back into a
// KeyPair. Keys that are not ECDSA P-256 are rejected.
func LoadKeyPair(der []byte) (*KeyPair, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, acmeerr.KeyDecodeError("parsing PKCS#8 private key: %s", err)
	}
	privKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, acmeerr.KeyDecodeError("private key is %T, expected ECDSA", parsed)
	}
	if privKey.Curve != elliptic.P256() {
		return nil, acmeerr.KeyDecodeError("private key curve is %q, expected P-256",
			privKey.Curve.Params().Name)
	}
	return &KeyPair{
		Signer: privKey,
		PKCS8:  der,
	}, nil
}

// PublicPoint returns the uncompressed SEC1 encoding of the public key:
// a 0x04 prefix byte followed by the 32-byte X and Y coordinates.
func (kp *KeyPair) PublicPoint() []byte {
	point := make([]byte, 65)
	point[0] = 0x04
	kp.Signer.PublicKey.X.FillBytes(point[1:33])
	kp.Signer.PublicKey.Y.FillBytes(point[33:65])
	return point
}

// JWK returns the public half of the keypair as a go-jose JWK, suitable for
// embedding or thumbprinting.
func (kp *KeyPair) JWK() jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       kp.Signer.Public(),
		Algorithm: "ECDSA",
	}
}

// Thumbprint returns the base64url encoded RFC 7638 SHA-256 thumbprint of the
// account key.
func (kp *KeyPair) Thumbprint() (string, error) {
	jwk := kp.JWK()
	thumbBytes, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", acmeerr.KeyDecodeError("computing JWK thumbprint: %s", err)
	}
	return Base64URL(thumbBytes), nil
}

// KeyAuthorization computes the RFC 8555 section 8.1 key authorization for
// a challenge token: token || "." || b64url(SHA-256(canonical JWK)), where the
// canonical JWK is the member-ordered serialization produced by EncodeJWK.
func (kp *KeyPair) KeyAuthorization(token string) (string, error) {
	jwk, err := EncodeJWK(kp.PublicPoint())
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(jwk.Canonical())
	return fmt.Sprintf("%s.%s", token, Base64URL(digest[:])), nil
}

// DNSChallengeRecord derives the TXT record value for a dns-01 challenge from
// a key authorization: b64url(SHA-256(keyAuth)). See RFC 8555 section 8.4.
func DNSChallengeRecord(keyAuth string) string {
	digest := sha256.Sum256([]byte(keyAuth))
	return Base64URL(digest[:])
}

// SigningKey wraps the keypair as a go-jose signing key. A non-empty keyID is
// carried as the JWS "kid" header; callers pass an empty keyID when the JWK
// itself will be embedded instead.
func (kp *KeyPair) SigningKey(keyID string) jose.SigningKey {
	jwk := jose.JSONWebKey{
		Key:       kp.Signer,
		Algorithm: "ECDSA",
		KeyID:     keyID,
	}
	return jose.SigningKey{
		Key:       jwk,
		Algorithm: jose.ES256,
	}
}
