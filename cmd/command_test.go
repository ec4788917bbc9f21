package cmd

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certo-acme/certo/storage"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("CERTO_STORE_DIR", "")
	t.Setenv("CERTO_STORE_TYPE", "")
	t.Setenv("CERTO_LOG_LEVEL", "")

	conf := ConfigFromEnv()
	assert.NotEmpty(t, conf.StoreDir)
	assert.Equal(t, "file", conf.StoreType)
	assert.Equal(t, log.WarnLevel, conf.LogLevel)
	assert.Equal(t, "certo", conf.VaultPrefix)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("CERTO_STORE_DIR", "/tmp/certo-test")
	t.Setenv("CERTO_STORE_TYPE", "vault")
	t.Setenv("CERTO_LOG_LEVEL", "DEBUG")
	t.Setenv("VAULT_ADDR", "https://vault.example.test:8200")
	t.Setenv("VAULT_TOKEN", "tok")
	t.Setenv("CERTO_VAULT_PREFIX", "infra/certo")

	conf := ConfigFromEnv()
	assert.Equal(t, "/tmp/certo-test", conf.StoreDir)
	assert.Equal(t, "vault", conf.StoreType)
	assert.Equal(t, log.DebugLevel, conf.LogLevel)
	assert.Equal(t, "https://vault.example.test:8200", conf.VaultAddr)
	assert.Equal(t, "tok", conf.VaultToken)
	assert.Equal(t, "infra/certo", conf.VaultPrefix)
}

func TestNewStoreFile(t *testing.T) {
	conf := EnvConfig{StoreType: "file", StoreDir: t.TempDir()}
	store, err := conf.NewStore()
	require.NoError(t, err)
	_, ok := store.(*storage.FileStore)
	assert.True(t, ok)
}

func TestNewStoreVaultRequiresAddr(t *testing.T) {
	conf := EnvConfig{StoreType: "vault"}
	_, err := conf.NewStore()
	require.Error(t, err)
}
