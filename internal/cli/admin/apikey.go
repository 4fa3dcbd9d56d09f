package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/spf13/cobra"
)

// keyManager is the part of service.AuthService the apikey commands drive.
type keyManager interface {
	CreateAPIKey(ctx context.Context, ownerID int64, name string) (string, *domain.APIKey, error)
	ListAPIKeys(ctx context.Context, ownerID int64, cursor string, limit int) (*service.APIKeyPage, error)
	RevokeAPIKey(ctx context.Context, keyID string) error
}

// openKeyManager connects to the configured database. The returned func
// releases the connection.
var openKeyManager = func(ctx context.Context) (keyManager, func(), error) {
	pool, _, err := getDBPool(ctx)
	if err != nil {
		return nil, nil, err
	}
	return newAuthService(pool), pool.Close, nil
}

// withKeyManager runs fn against a freshly opened key manager.
func withKeyManager(cmd *cobra.Command, fn func(ctx context.Context, km keyManager) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	km, closeFn, err := openKeyManager(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, km)
}

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list and revoke the API keys that map bearer tokens to owner ids",
	}
	cmd.PersistentFlags().String("output", "text", "Output format (text or json)")

	cmd.AddCommand(apiKeyCreateCmd(), apiKeyListCmd(), apiKeyRevokeCmd())
	return cmd
}

type apiKeyView struct {
	ID        string     `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Name      string     `json:"name"`
	Token     string     `json:"token,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func newAPIKeyView(k *domain.APIKey) apiKeyView {
	return apiKeyView{
		ID:        k.ID,
		OwnerID:   k.OwnerID,
		Name:      k.Name,
		CreatedAt: k.CreatedAt,
		RevokedAt: k.RevokedAt,
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("output")
	return format == "json"
}

func apiKeyCreateCmd() *cobra.Command {
	var (
		ownerID int64
		name    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key bound to an owner id. The token is printed once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyManager(cmd, func(ctx context.Context, km keyManager) error {
				token, key, err := km.CreateAPIKey(ctx, ownerID, name)
				if err != nil {
					return fmt.Errorf("failed to create API key: %w", err)
				}

				w := cmd.OutOrStdout()
				if jsonOutput(cmd) {
					view := newAPIKeyView(key)
					view.Token = token
					return writeJSON(w, view)
				}
				fmt.Fprintf(w, "Created key %s (%q) for owner %d\n", key.ID, key.Name, key.OwnerID)
				fmt.Fprintf(w, "Token: %s\n", token)
				fmt.Fprintln(w, "The token cannot be shown again.")
				return nil
			})
		},
	}

	cmd.Flags().Int64VarP(&ownerID, "owner", "o", 0, "Owner id the key authenticates as (required)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "API key name (required)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func apiKeyListCmd() *cobra.Command {
	var (
		ownerID int64
		limit   int
		cursor  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for an owner",
		Long:  "List the API keys bound to an owner id, newest first, including revoked keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyManager(cmd, func(ctx context.Context, km keyManager) error {
				page, err := km.ListAPIKeys(ctx, ownerID, cursor, limit)
				if err != nil {
					return fmt.Errorf("failed to list API keys: %w", err)
				}
				return printKeyPage(cmd.OutOrStdout(), jsonOutput(cmd), ownerID, page)
			})
		},
	}

	cmd.Flags().Int64VarP(&ownerID, "owner", "o", 0, "Owner id (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func printKeyPage(w io.Writer, asJSON bool, ownerID int64, page *service.APIKeyPage) error {
	views := make([]apiKeyView, len(page.Items))
	for i, k := range page.Items {
		views[i] = newAPIKeyView(k)
	}

	if asJSON {
		return writeJSON(w, struct {
			Items   []apiKeyView `json:"items"`
			Cursor  string       `json:"cursor,omitempty"`
			HasMore bool         `json:"has_more"`
		}{views, page.NextCursor, page.HasMore})
	}

	if len(views) == 0 {
		fmt.Fprintf(w, "No API keys for owner %d\n", ownerID)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tCREATED")
	for _, v := range views {
		status := "active"
		if v.RevokedAt != nil {
			status = "revoked"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Name, status, v.CreatedAt.Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.HasMore {
		fmt.Fprintf(w, "\nMore keys: --cursor %s\n", page.NextCursor)
	}
	return nil
}

func apiKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Long:  "Revoke an API key by id. Requests with its token are rejected from then on.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyID := args[0]
			return withKeyManager(cmd, func(ctx context.Context, km keyManager) error {
				if err := km.RevokeAPIKey(ctx, keyID); err != nil {
					return fmt.Errorf("failed to revoke API key: %w", err)
				}
				if jsonOutput(cmd) {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"id": keyID, "revoked": true})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Revoked API key %s\n", keyID)
				return nil
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
