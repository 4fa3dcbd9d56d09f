package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Save, inspect and remove the API key the docrag CLI sends to the server",
	}
	cmd.AddCommand(authLoginCmd(), authLogoutCmd(), authStatusCmd())
	return cmd
}

func authLoginCmd() *cobra.Command {
	var key, url string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with API key",
		Long: `Save the API key and URL to the credentials file
(~/.config/docrag/credentials.toml on Linux). Without --key the key is
read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter API key: ")
				var err error
				if key, err = readAPIKey(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			return runAuthLogin(cmd.OutOrStdout(), key, url)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (drg_...)")
	cmd.Flags().StringVar(&url, "url", defaultAPIURL, "API URL")
	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved credentials",
		Long:  "Delete the credentials file. Keys set by flag or environment are unaffected.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteCredentials(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long:  "Show which credentials the CLI would use and where they come from",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("output")
			return runAuthStatus(cmd.OutOrStdout(), asJSON)
		},
	}
}

// readAPIKey reads one line. A key without a trailing newline is accepted.
func readAPIKey(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogin(w io.Writer, apiKey, apiURL string) error {
	if !IsValidAPIKey(apiKey) {
		return errors.New("invalid API key format: want drg_ followed by 64 hex characters")
	}
	if err := SaveCredentials(&Credentials{APIKey: apiKey, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	fmt.Fprintf(w, "Successfully logged in to %s\n", apiURL)
	return nil
}

type authStatus struct {
	Authenticated bool             `json:"authenticated"`
	Source        CredentialSource `json:"source"`
	APIKey        string           `json:"api_key,omitempty"`
	APIURL        string           `json:"api_url,omitempty"`
}

func runAuthStatus(w io.Writer, asJSON bool) error {
	source, apiKey, apiURL := GetCredentialSource("", "")
	status := authStatus{Source: source}
	if source != SourceNone {
		status = authStatus{
			Authenticated: true,
			Source:        source,
			APIKey:        maskAPIKey(apiKey),
			APIURL:        apiURL,
		}
	}

	if asJSON {
		return writeJSON(w, status)
	}
	if !status.Authenticated {
		fmt.Fprintln(w, "Not authenticated. Run 'docrag auth login'.")
		return nil
	}
	fmt.Fprintf(w, "Source:  %s\nAPI key: %s\nAPI URL: %s\n", status.Source, status.APIKey, status.APIURL)
	return nil
}

// maskAPIKey keeps the prefix and last four characters.
func maskAPIKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
