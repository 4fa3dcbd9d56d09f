package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

// Credentials are what `docrag auth login` saves for later commands.
type Credentials struct {
	APIKey string `toml:"api_key"`
	APIURL string `toml:"api_url"`
}

func (c *Credentials) complete() bool {
	return c != nil && c.APIKey != "" && c.APIURL != ""
}

// credentialsPath locates the credentials file. Tests replace it.
var credentialsPath = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "docrag", "credentials.toml"), nil
}

// LoadCredentials returns nil without error when nothing has been saved.
func LoadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := toml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &creds, nil
}

// SaveCredentials replaces the credentials file. The file is only readable
// by the current user and is never left half written.
func SaveCredentials(creds *Credentials) error {
	if creds == nil {
		return errors.New("credentials cannot be nil")
	}

	path, err := credentialsPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

func DeleteCredentials() error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

var apiKeyPattern = regexp.MustCompile(`^drg_[0-9a-fA-F]{64}$`)

// IsValidAPIKey reports whether key looks like a server-issued key.
func IsValidAPIKey(key string) bool {
	return apiKeyPattern.MatchString(key)
}

// CredentialSource names where the active credentials came from.
type CredentialSource string

const (
	SourceFlag CredentialSource = "flag"
	SourceEnv  CredentialSource = "env"
	SourceFile CredentialSource = "credentials_file"
	SourceNone CredentialSource = "none"
)

// GetCredentialSource returns the first complete key and URL pair from flags,
// then the environment (including a .env file), then the credentials file.
func GetCredentialSource(flagAPIKey, flagAPIURL string) (CredentialSource, string, string) {
	candidates := []struct {
		source CredentialSource
		load   func() *Credentials
	}{
		{SourceFlag, func() *Credentials {
			return &Credentials{APIKey: flagAPIKey, APIURL: flagAPIURL}
		}},
		{SourceEnv, func() *Credentials {
			return &Credentials{APIKey: os.Getenv(envAPIKey), APIURL: os.Getenv(envAPIURL)}
		}},
		{SourceFile, func() *Credentials {
			creds, _ := LoadCredentials()
			return creds
		}},
	}

	for _, c := range candidates {
		if creds := c.load(); creds.complete() {
			return c.source, creds.APIKey, creds.APIURL
		}
	}
	return SourceNone, "", ""
}
