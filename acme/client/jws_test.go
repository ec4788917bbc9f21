package client

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certo-acme/certo/acme/keys"
)

// staticNonce is a NonceSource handing out a fixed value.
type staticNonce string

func (n staticNonce) Nonce() (string, error) {
	return string(n), nil
}

// envelope is the flattened JWS wire form.
type envelope struct {
	Protected string `json:"protected"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

func testSigningClient(t *testing.T) *Client {
	t.Helper()
	kp, err := keys.NewKeyPair()
	require.NoError(t, err)
	return &Client{Keys: kp}
}

func decodeEnvelope(t *testing.T, serialized []byte) (envelope, map[string]interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(serialized, &env))

	protectedBytes, err := keys.Base64URLDecode(env.Protected)
	require.NoError(t, err)
	var header map[string]interface{}
	require.NoError(t, json.Unmarshal(protectedBytes, &header))
	return env, header
}

// verifyEnvelope checks the ES256 signature over the exact signing input
// b64url(protected) || "." || b64url(payload).
func verifyEnvelope(t *testing.T, pub *ecdsa.PublicKey, env envelope) {
	t.Helper()
	sig, err := keys.Base64URLDecode(env.Signature)
	require.NoError(t, err)
	require.Len(t, sig, 64, "ES256 signatures are fixed-width 64 bytes")

	digest := sha256.Sum256([]byte(env.Protected + "." + env.Payload))
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	assert.True(t, ecdsa.Verify(pub, digest[:], r, s))
}

func TestSignEmbeddedKey(t *testing.T) {
	c := testSigningClient(t)
	url := "https://ca.test/acme/new-acct"

	result, err := c.Sign(url, []byte(`{"termsOfServiceAgreed":true}`), &SigningOptions{
		EmbedKey:    true,
		NonceSource: staticNonce("nonce-1"),
	})
	require.NoError(t, err)

	env, header := decodeEnvelope(t, result.SerializedJWS)
	assert.Equal(t, "ES256", header["alg"])
	assert.Equal(t, "nonce-1", header["nonce"])
	assert.Equal(t, url, header["url"])
	assert.Contains(t, header, "jwk")
	assert.NotContains(t, header, "kid")

	jwk, ok := header["jwk"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "EC", jwk["kty"])
	assert.Equal(t, "P-256", jwk["crv"])

	verifyEnvelope(t, &c.Keys.Signer.PublicKey, env)
}

func TestSignWithKeyID(t *testing.T) {
	c := testSigningClient(t)
	c.ID = "https://ca.test/acct/7"
	url := "https://ca.test/acme/new-order"

	result, err := c.Sign(url, []byte(`{"identifiers":[]}`), &SigningOptions{
		NonceSource: staticNonce("nonce-2"),
	})
	require.NoError(t, err)

	env, header := decodeEnvelope(t, result.SerializedJWS)
	assert.Equal(t, "ES256", header["alg"])
	assert.Equal(t, "nonce-2", header["nonce"])
	assert.Equal(t, url, header["url"])
	assert.Equal(t, c.ID, header["kid"])
	assert.NotContains(t, header, "jwk")

	verifyEnvelope(t, &c.Keys.Signer.PublicKey, env)
}

func TestSignEmptyPayloadIsPostAsGet(t *testing.T) {
	c := testSigningClient(t)
	c.ID = "https://ca.test/acct/7"

	result, err := c.Sign("https://ca.test/authz/1", []byte{}, &SigningOptions{
		NonceSource: staticNonce("nonce-3"),
	})
	require.NoError(t, err)

	env, _ := decodeEnvelope(t, result.SerializedJWS)
	// The wire payload for POST-as-GET is the empty string, not "" quoted.
	assert.Equal(t, "", env.Payload)
	verifyEnvelope(t, &c.Keys.Signer.PublicKey, env)
}

func TestSignEnvelopeHasExactlyThreeMembers(t *testing.T) {
	c := testSigningClient(t)

	result, err := c.Sign("https://ca.test/a", []byte(`{}`), &SigningOptions{
		EmbedKey:    true,
		NonceSource: staticNonce("n"),
	})
	require.NoError(t, err)

	var members map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(result.SerializedJWS, &members))
	assert.Len(t, members, 3)
	assert.Contains(t, members, "protected")
	assert.Contains(t, members, "payload")
	assert.Contains(t, members, "signature")
}

func TestSignRejectsKidWithoutAccount(t *testing.T) {
	c := testSigningClient(t)

	// No account URL yet and no EmbedKey: the signer must refuse rather than
	// produce a JWS with an empty kid.
	_, err := c.Sign("https://ca.test/a", []byte(`{}`), &SigningOptions{
		NonceSource: staticNonce("n"),
	})
	require.Error(t, err)
}

func TestSignRejectsBothKidAndEmbedKey(t *testing.T) {
	c := testSigningClient(t)

	_, err := c.Sign("https://ca.test/a", []byte(`{}`), &SigningOptions{
		EmbedKey:    true,
		KeyID:       "https://ca.test/acct/7",
		NonceSource: staticNonce("n"),
	})
	require.Error(t, err)
}
