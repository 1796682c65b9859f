package auth

import (
	"context"
	"errors"
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// vaultFields are tried in order when reading the token from a secret.
var vaultFields = []string{"token", "access_token", "value"}

// VaultSource reads the bearer token from a HashiCorp Vault secret. The
// Vault token comes from VAULT_TOKEN as usual for the Vault client.
type VaultSource struct {
	client *vault.Client
	path   string
}

// NewVaultSource creates a source for the secret at path. An empty
// address falls back to VAULT_ADDR.
func NewVaultSource(address, path string) (*VaultSource, error) {
	if path == "" {
		return nil, errors.New("vault: secret path is required")
	}
	cfg := vault.DefaultConfig()
	if address != "" {
		cfg.Address = address
	}
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	return &VaultSource{client: client, path: path}, nil
}

// Client exposes the underlying Vault client, e.g. to set a token.
func (v *VaultSource) Client() *vault.Client { return v.client }

// Token reads the secret and returns its token field. KV version 2
// secrets, whose fields sit under a nested "data" map, are unwrapped.
func (v *VaultSource) Token(ctx context.Context) (string, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.path)
	if err != nil {
		return "", fmt.Errorf("read vault secret %s: %w", v.path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %s: %w", v.path, ErrNotFound)
	}

	data := secret.Data
	if nested, ok := data["data"].(map[string]any); ok {
		data = nested
	}
	for _, field := range vaultFields {
		if s, ok := data[field].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("vault secret %s has no token field: %w", v.path, ErrNotFound)
}
