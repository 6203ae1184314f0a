package github

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	prcerrors "thoreinstein.com/prc/pkg/errors"
)

const (
	// KeyringService is the keychain service name for prc.
	KeyringService = "prc-github"
	// KeyringAccount is the keychain account name for OAuth tokens.
	KeyringAccount = "oauth-token"

	// TokenCacheFile is the fallback file, relative to the home directory.
	TokenCacheFile = ".config/prc/github-token.json" //nolint:gosec // Not a credential, just a filename
)

// TokenCache manages OAuth token storage.
type TokenCache interface {
	Get() (*oauth2.Token, error)
	Set(token *oauth2.Token) error
	Clear() error
}

// cachedToken wraps oauth2.Token with JSON serialization.
type cachedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

func encodeToken(t *oauth2.Token) ([]byte, error) {
	data, err := json.Marshal(cachedToken{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	})
	if err != nil {
		return nil, prcerrors.NewGitHubErrorWithCause("TokenCache.Set", "failed to serialize token", err)
	}
	return data, nil
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var c cachedToken
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, prcerrors.NewGitHubErrorWithCause("TokenCache.Get", "failed to parse cached token", err)
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}, nil
}

// NewTokenCache creates a token cache, preferring keychain when available.
func NewTokenCache() TokenCache {
	// Probe the keyring; headless Linux often has no secret service
	testService := KeyringService + "-test"
	if err := keyring.Set(testService, "test", "test"); err == nil {
		_ = keyring.Delete(testService, "test")
		return &KeychainTokenCache{
			service: KeyringService,
			account: KeyringAccount,
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return NewFileTokenCache(filepath.Join(home, TokenCacheFile))
}

// KeychainTokenCache uses macOS keychain / Linux secret service / Windows credential manager.
type KeychainTokenCache struct {
	service string
	account string
}

// Get retrieves the cached token from keychain. A missing entry is (nil, nil).
func (k *KeychainTokenCache) Get() (*oauth2.Token, error) {
	data, err := keyring.Get(k.service, k.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, prcerrors.NewGitHubErrorWithCause("TokenCache.Get", "failed to read from keychain", err)
	}
	return decodeToken([]byte(data))
}

// Set stores the token in keychain.
func (k *KeychainTokenCache) Set(token *oauth2.Token) error {
	data, err := encodeToken(token)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, k.account, string(data)); err != nil {
		return prcerrors.NewGitHubErrorWithCause("TokenCache.Set", "failed to save to keychain", err)
	}
	return nil
}

// Clear removes the token from keychain.
func (k *KeychainTokenCache) Clear() error {
	err := keyring.Delete(k.service, k.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return prcerrors.NewGitHubErrorWithCause("TokenCache.Clear", "failed to clear keychain", err)
	}
	return nil
}

// FileTokenCache stores the token in a file (fallback for headless systems).
type FileTokenCache struct {
	path string
}

// NewFileTokenCache creates a file-backed cache at path.
func NewFileTokenCache(path string) *FileTokenCache {
	return &FileTokenCache{path: path}
}

// Get retrieves the cached token from file. A missing file is (nil, nil).
func (f *FileTokenCache) Get() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, prcerrors.NewGitHubErrorWithCause("TokenCache.Get", "failed to read token file", err)
	}
	return decodeToken(data)
}

// Set stores the token in a file readable only by the owner.
func (f *FileTokenCache) Set(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return prcerrors.NewGitHubErrorWithCause("TokenCache.Set", "failed to create config directory", err)
	}

	data, err := encodeToken(token)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return prcerrors.NewGitHubErrorWithCause("TokenCache.Set", "failed to write token file", err)
	}
	return nil
}

// Clear removes the token file.
func (f *FileTokenCache) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return prcerrors.NewGitHubErrorWithCause("TokenCache.Clear", "failed to remove token file", err)
	}
	return nil
}
