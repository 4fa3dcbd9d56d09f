package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "docrag", Short: "root"}
	AddHelpJSONFlag(root)

	docs := &cobra.Command{Use: "docs", Aliases: []string{"documents"}, Short: "Manage documents"}
	list := &cobra.Command{Use: "list", Short: "List documents", Run: func(*cobra.Command, []string) {}}
	list.Flags().IntP("limit", "n", 20, "Maximum number of documents")
	list.Flags().String("owner", "", "Owner id")
	_ = list.MarkFlagRequired("owner")
	docs.AddCommand(list)

	hidden := &cobra.Command{Use: "debug", Hidden: true, Run: func(*cobra.Command, []string) {}}
	root.AddCommand(docs, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testTree())

	assert.Equal(t, "docrag", schema.Name)
	require.Len(t, schema.Subcommands, 1, "hidden and help commands are skipped")

	docs := schema.Subcommands[0]
	assert.Equal(t, []string{"documents"}, docs.Aliases)
	require.Len(t, docs.Subcommands, 1)

	flags := docs.Subcommands[0].Flags
	require.Len(t, flags, 2)
	byName := map[string]FlagSchema{}
	for _, f := range flags {
		byName[f.Name] = f
	}
	assert.Equal(t, FlagSchema{
		Name:        "limit",
		Shorthand:   "n",
		Type:        "int",
		Default:     "20",
		Description: "Maximum number of documents",
	}, byName["limit"])
	assert.True(t, byName["owner"].Required)
}

func TestResolveCommand(t *testing.T) {
	root := testTree()

	assert.Equal(t, "docrag", resolveCommand(root, nil).Name())
	assert.Equal(t, "list", resolveCommand(root, []string{"documents", "list"}).Name())
	assert.Equal(t, "docs", resolveCommand(root, []string{"docs", "unknown"}).Name())
	assert.Equal(t, "docrag", resolveCommand(root, []string{"bogus"}).Name())
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testTree()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "root", decoded.Description)
}
