package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/certo-acme/certo/acmeerr"
)

const vaultValueKey = "value"

// VaultStore persists account objects in a HashiCorp Vault KV version 2
// mount. Objects live at <prefix>/accounts/<name>.<ext>; because KV values
// are strings, payloads are base64 encoded on write and decoded on read. The
// account engine never sees the encoding.
type VaultStore struct {
	kv     *vault.KVv2
	prefix string
}

// VaultConfig holds the connection settings for a VaultStore. Addr and Token
// come from the conventional VAULT_ADDR / VAULT_TOKEN environment variables.
type VaultConfig struct {
	// The Vault server address, e.g. "https://vault.example.test:8200".
	Addr string
	// The Vault token used to authenticate.
	Token string
	// The KV v2 mount path. Defaults to "secret".
	Mount string
	// Path prefix inside the mount under which accounts/ lives.
	Prefix string
}

// NewVaultStore creates a VaultStore from the given config.
func NewVaultStore(conf VaultConfig) (*VaultStore, error) {
	if conf.Addr == "" {
		return nil, acmeerr.StoreIOError("vault store requires an address")
	}
	if conf.Token == "" {
		return nil, acmeerr.StoreIOError("vault store requires a token")
	}
	if conf.Mount == "" {
		conf.Mount = "secret"
	}

	vaultConf := vault.DefaultConfig()
	vaultConf.Address = conf.Addr
	client, err := vault.NewClient(vaultConf)
	if err != nil {
		return nil, acmeerr.StoreIOError("creating vault client: %s", err)
	}
	client.SetToken(conf.Token)

	return &VaultStore{
		kv:     client.KVv2(conf.Mount),
		prefix: strings.Trim(conf.Prefix, "/"),
	}, nil
}

func (s *VaultStore) path(kind ObjectKind, accountName string) string {
	name := fmt.Sprintf("accounts/%s.%s", accountName, kind.Ext())
	if s.prefix == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", s.prefix, name)
}

// Read fetches and base64-decodes the object's secret.
func (s *VaultStore) Read(kind ObjectKind, accountName string) ([]byte, error) {
	path := s.path(kind, accountName)
	secret, err := s.kv.Get(context.Background(), path)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return nil, acmeerr.StoreNotFoundError("no %s stored for account %q",
			kind, accountName)
	}
	if err != nil {
		return nil, acmeerr.StoreIOError("reading %q from vault: %s", path, err)
	}
	encoded, ok := secret.Data[vaultValueKey].(string)
	if !ok {
		return nil, acmeerr.DecodeError("vault secret %q has no %q string field",
			path, vaultValueKey)
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, acmeerr.DecodeError("decoding vault secret %q: %s", path, err)
	}
	return payload, nil
}

// Write base64-encodes the payload and stores it as the object's secret.
func (s *VaultStore) Write(kind ObjectKind, accountName string, payload []byte) error {
	path := s.path(kind, accountName)
	_, err := s.kv.Put(context.Background(), path, map[string]interface{}{
		vaultValueKey: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return acmeerr.StoreIOError("writing %q to vault: %s", path, err)
	}
	return nil
}
