package storage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certo-acme/certo/acmeerr"
)

// fakeVault speaks just enough of the KV v2 HTTP API for the store: GET and
// POST/PUT on /v1/secret/data/<path>.
type fakeVault struct {
	mu      sync.Mutex
	secrets map[string]map[string]interface{}
	tokens  []string
}

func newFakeVault(t *testing.T) (*fakeVault, string) {
	t.Helper()
	fv := &fakeVault{secrets: map[string]map[string]interface{}{}}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/v1/secret/data/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, prefix)

		fv.mu.Lock()
		defer fv.mu.Unlock()
		fv.tokens = append(fv.tokens, r.Header.Get("X-Vault-Token"))

		switch r.Method {
		case http.MethodGet:
			data, ok := fv.secrets[path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"errors":[]}`)
				return
			}
			resp := map[string]interface{}{
				"data": map[string]interface{}{
					"data": data,
					"metadata": map[string]interface{}{
						"created_time": "2026-08-01T00:00:00Z",
						"version":      1,
					},
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost, http.MethodPut:
			var body struct {
				Data map[string]interface{} `json:"data"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fv.secrets[path] = body.Data
			resp := map[string]interface{}{
				"data": map[string]interface{}{
					"created_time": "2026-08-01T00:00:00Z",
					"version":      1,
				},
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(ts.Close)
	return fv, ts.URL
}

func newTestVaultStore(t *testing.T) (*VaultStore, *fakeVault) {
	t.Helper()
	fv, addr := newFakeVault(t)
	store, err := NewVaultStore(VaultConfig{
		Addr:   addr,
		Token:  "unit-test-token",
		Prefix: "certo",
	})
	require.NoError(t, err)
	return store, fv
}

func TestVaultStoreRoundTrip(t *testing.T) {
	store, fv := newTestVaultStore(t)

	payload := []byte{0x30, 0x82, 0x00, 0x01, 0xfe}
	require.NoError(t, store.Write(KeyPair, "alice@example.test", payload))

	got, err := store.Read(KeyPair, "alice@example.test")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// The secret landed at the expected path with a base64 string value.
	fv.mu.Lock()
	secret, ok := fv.secrets["certo/accounts/alice@example.test.key"]
	fv.mu.Unlock()
	require.True(t, ok)
	value, ok := secret["value"].(string)
	require.True(t, ok)
	assert.NotEqual(t, string(payload), value, "binary payloads are base64 wrapped")

	// Requests authenticated with the configured token.
	assert.Contains(t, fv.tokens, "unit-test-token")
}

func TestVaultStoreNotFound(t *testing.T) {
	store, _ := newTestVaultStore(t)

	_, err := store.Read(Directory, "nobody@example.test")
	require.Error(t, err)
	assert.True(t, acmeerr.Is(err, acmeerr.StoreNotFound))
}

func TestVaultStoreRequiresConfig(t *testing.T) {
	_, err := NewVaultStore(VaultConfig{Token: "t"})
	require.Error(t, err)

	_, err = NewVaultStore(VaultConfig{Addr: "https://vault.example.test:8200"})
	require.Error(t, err)
}

// Any two conforming backends are interchangeable: bytes written through one
// read back identically through the other's contract.
func TestBackendEquivalence(t *testing.T) {
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	vaultStore, _ := newTestVaultStore(t)

	objects := map[ObjectKind][]byte{
		KeyPair:    {0x30, 0x82, 0x01, 0xff, 0x00, 0x7f},
		AccountURL: []byte("https://ca.test/acct/7"),
		Directory:  []byte(`{"url":"https://ca.test/dir","directory":{"newNonce":"https://ca.test/nn"}}`),
	}

	for _, store := range []Store{fileStore, vaultStore} {
		for kind, payload := range objects {
			require.NoError(t, store.Write(kind, "alice@example.test", payload))
		}
	}

	for kind, payload := range objects {
		fromFile, err := fileStore.Read(kind, "alice@example.test")
		require.NoError(t, err)
		fromVault, err := vaultStore.Read(kind, "alice@example.test")
		require.NoError(t, err)
		assert.Equal(t, payload, fromFile)
		assert.Equal(t, fromFile, fromVault)
	}
}
