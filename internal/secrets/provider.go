// Package secrets resolves the credentials the API needs at startup:
// the POSTGRES-MAIN-* database secrets, the ANALYSIS-API-KEY for the
// document analysis service and the storage-connection-string for blob
// storage. Secrets come from Azure Key Vault in staging and production
// and from environment variables everywhere else.
package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	// SourceEnvironment loads secrets from environment variables
	SourceEnvironment SecretSource = "environment"
	// SourceVault loads secrets from Azure Key Vault
	SourceVault SecretSource = "vault"
	// SourceAuto picks vault in staging/production and environment
	// variables in development
	SourceAuto SecretSource = "auto"
)

// Provider resolves named secrets from the configured source
type Provider struct {
	source      SecretSource
	vaultClient *VaultClient
	logger      *zap.Logger
	environment string
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string // "development", "staging", "production"
	CacheEnabled bool
	CacheTTL     time.Duration
}

func resolveSource(cfg *ProviderConfig, logger *zap.Logger) SecretSource {
	if cfg.Source != SourceAuto {
		return cfg.Source
	}

	source := SourceVault
	switch cfg.Environment {
	case "development", "local", "":
		source = SourceEnvironment
	}
	logger.Info("Auto-detected secret source",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return source
}

// NewProvider creates a secrets provider. A vault client is only
// constructed when the resolved source is vault.
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	provider := &Provider{
		source:      resolveSource(cfg, logger),
		logger:      logger,
		environment: cfg.Environment,
	}

	if provider.source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}

		vaultClient, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		provider.vaultClient = vaultClient
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(provider.source)),
		zap.String("environment", cfg.Environment),
	)

	return provider, nil
}

// GetSecret retrieves a secret by name. For the vault source the name
// is a Key Vault secret name ("POSTGRES-MAIN-PASSWORD"); for the
// environment source it is an environment variable name.
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	switch p.source {
	case SourceEnvironment:
		value := os.Getenv(secretName)
		if value == "" {
			return "", fmt.Errorf("environment variable '%s' not set", secretName)
		}
		return value, nil

	case SourceVault:
		if p.vaultClient == nil {
			return "", fmt.Errorf("vault client not initialized")
		}
		return p.vaultClient.GetSecret(ctx, secretName)

	default:
		return "", fmt.Errorf("unknown secret source: %s", p.source)
	}
}

// GetSecretOrEnv resolves a secret with an explicit environment
// variable override: a set env var wins even in vault mode. This keeps
// per-environment values like DATABASE_HOST overridable without
// touching the vault.
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := os.Getenv(envName); envValue != "" {
		p.logger.Debug("Using environment variable override",
			zap.String("env_name", envName),
		)
		return envValue, nil
	}

	return p.GetSecret(ctx, secretName)
}

// IsVaultEnabled returns true if secrets are loaded from vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}
