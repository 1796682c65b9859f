package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/config"
)

// ResolveToken returns the bearer token for serverURL according to the
// configured auth mode. An explicit access token always wins; mode
// "none" yields no token.
func ResolveToken(ctx context.Context, cfg config.AuthConfig, serverURL string) (string, error) {
	if cfg.Mode == config.AuthNone || cfg.Mode == "" {
		return "", nil
	}
	if cfg.AccessToken != "" {
		return cfg.AccessToken, nil
	}

	switch cfg.Mode {
	case config.AuthBearer, config.AuthOAuth2:
		return "", fmt.Errorf("auth mode %s requires an access token", cfg.Mode)

	case config.AuthKeyring, config.AuthFile:
		mode := StoreModeKeyring
		if cfg.Mode == config.AuthFile {
			mode = StoreModeFile
		}
		store, err := NewStore(mode, cfg.TokenFile)
		if err != nil {
			return "", err
		}
		entry, err := store.Get(serverURL)
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("no stored token for %s (run `mcpfuzz token set`): %w", serverURL, err)
		}
		if err != nil {
			return "", err
		}
		return entry.AccessToken, nil

	case config.AuthVault:
		src, err := NewVaultSource(cfg.VaultAddress, cfg.VaultPath)
		if err != nil {
			return "", err
		}
		return src.Token(ctx)

	default:
		return "", fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}
