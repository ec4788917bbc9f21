// Package cmd provides common helpers for the certo binary.
package cmd

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/certo-acme/certo/storage"
)

// FailOnError logs the message and error and exits non-zero. It returns
// immediately when err is nil.
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	log.Fatalf("[!] %s - %s", msg, err)
}

// EnvConfig is the configuration surface read from the environment. Flags
// override individual fields.
type EnvConfig struct {
	// Base directory for the file-backed store. CERTO_STORE_DIR.
	StoreDir string
	// "file" or "vault". CERTO_STORE_TYPE.
	StoreType string
	// DEBUG|INFO|WARN|ERROR. CERTO_LOG_LEVEL.
	LogLevel log.Level
	// Vault connection settings. VAULT_ADDR / VAULT_TOKEN / CERTO_VAULT_PREFIX.
	VaultAddr   string
	VaultToken  string
	VaultPrefix string
}

// ConfigFromEnv reads the environment, applying defaults: a file store under
// the user's config home and WARN level logging.
func ConfigFromEnv() EnvConfig {
	conf := EnvConfig{
		StoreDir:    os.Getenv("CERTO_STORE_DIR"),
		StoreType:   os.Getenv("CERTO_STORE_TYPE"),
		VaultAddr:   os.Getenv("VAULT_ADDR"),
		VaultToken:  os.Getenv("VAULT_TOKEN"),
		VaultPrefix: os.Getenv("CERTO_VAULT_PREFIX"),
	}

	if conf.StoreDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		conf.StoreDir = filepath.Join(home, ".config", "certo")
	}
	if conf.StoreType == "" {
		conf.StoreType = "file"
	}
	if conf.VaultPrefix == "" {
		conf.VaultPrefix = "certo"
	}

	switch os.Getenv("CERTO_LOG_LEVEL") {
	case "DEBUG":
		conf.LogLevel = log.DebugLevel
	case "INFO":
		conf.LogLevel = log.InfoLevel
	case "ERROR":
		conf.LogLevel = log.ErrorLevel
	case "WARN", "":
		conf.LogLevel = log.WarnLevel
	default:
		conf.LogLevel = log.InfoLevel
	}

	return conf
}

// NewStore builds the configured store backend.
func (conf EnvConfig) NewStore() (storage.Store, error) {
	switch conf.StoreType {
	case "vault":
		return storage.NewVaultStore(storage.VaultConfig{
			Addr:   conf.VaultAddr,
			Token:  conf.VaultToken,
			Prefix: conf.VaultPrefix,
		})
	default:
		return storage.NewFileStore(conf.StoreDir)
	}
}
