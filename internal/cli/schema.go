// Package cli holds helpers shared by the docrag and docragd binaries.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// Commands and flags every cobra tree carries; they are left out of the
// schema.
var (
	builtinCommands = []string{"help", "completion"}
	builtinFlags    = []string{"help", helpJSONFlag}
)

type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandSchema is a machine-readable description of a command tree, so
// scripts can discover the CLI without scraping help text.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Aliases     []string        `json:"aliases,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

func GenerateSchema(cmd *cobra.Command) CommandSchema {
	var subs []CommandSchema
	for _, sub := range cmd.Commands() {
		if sub.Hidden || slices.Contains(builtinCommands, sub.Name()) {
			continue
		}
		subs = append(subs, GenerateSchema(sub))
	}

	return CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Aliases:     cmd.Aliases,
		Description: cmd.Short,
		Long:        cmd.Long,
		Flags:       flagSchemas(cmd.LocalFlags()),
		Subcommands: subs,
	}
}

func flagSchemas(fs *pflag.FlagSet) []FlagSchema {
	var out []FlagSchema
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || slices.Contains(builtinFlags, f.Name) {
			return
		}
		required := f.Annotations[cobra.BashCompOneRequiredFlag]
		out = append(out, FlagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
			Required:    slices.Contains(required, "true"),
		})
	})
	return out
}

func WriteSchema(w io.Writer, cmd *cobra.Command) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(GenerateSchema(cmd)); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}

func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// CheckHelpJSON handles --help-json before cobra parses args, so commands
// with required positional arguments can still be described. It prints the
// schema of the command named before the flag and exits.
func CheckHelpJSON(root *cobra.Command, args []string) {
	i := slices.Index(args, "--"+helpJSONFlag)
	if i < 0 {
		return
	}
	if err := WriteSchema(os.Stdout, resolveCommand(root, args[:i])); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// resolveCommand returns the deepest command named by path, falling back to
// root when the path names nothing.
func resolveCommand(root *cobra.Command, path []string) *cobra.Command {
	cmd, _, err := root.Find(path)
	if err != nil || cmd == nil {
		return root
	}
	return cmd
}
