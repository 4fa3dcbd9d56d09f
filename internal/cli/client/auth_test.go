package client

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthLogin(t *testing.T) {
	t.Run("stores credentials", func(t *testing.T) {
		useTempConfig(t)
		var out bytes.Buffer

		require.NoError(t, runAuthLogin(&out, testAPIKey, "http://localhost:9000"))
		assert.Contains(t, out.String(), "Successfully logged in")

		cfg, err := LoadCredentials()
		require.NoError(t, err)
		assert.Equal(t, &Credentials{APIKey: testAPIKey, APIURL: "http://localhost:9000"}, cfg)
	})

	t.Run("rejects malformed key", func(t *testing.T) {
		useTempConfig(t)

		err := runAuthLogin(&bytes.Buffer{}, "ntx_abc", defaultAPIURL)
		assert.ErrorContains(t, err, "invalid API key format")

		cfg, err := LoadCredentials()
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("prompts when no key flag", func(t *testing.T) {
		useTempConfig(t)
		cmd := AuthCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader(testAPIKey + "\n"))
		cmd.SetArgs([]string{"login"})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "Enter API key:")

		cfg, err := LoadCredentials()
		require.NoError(t, err)
		assert.Equal(t, testAPIKey, cfg.APIKey)
		assert.Equal(t, defaultAPIURL, cfg.APIURL)
	})
}

func TestAuthStatus(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		useTempConfig(t)
		t.Setenv(envAPIKey, "")
		t.Setenv(envAPIURL, "")
		var out bytes.Buffer

		require.NoError(t, runAuthStatus(&out, false))
		assert.Contains(t, out.String(), "Not authenticated")
	})

	t.Run("json masks the key", func(t *testing.T) {
		useTempConfig(t)
		t.Setenv(envAPIKey, "")
		t.Setenv(envAPIURL, "")
		require.NoError(t, SaveCredentials(&Credentials{APIKey: testAPIKey, APIURL: defaultAPIURL}))
		var out bytes.Buffer

		require.NoError(t, runAuthStatus(&out, true))

		var status map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &status))
		assert.Equal(t, true, status["authenticated"])
		assert.Equal(t, string(SourceFile), status["source"])
		assert.Equal(t, "drg_012...cdef", status["api_key"])
	})
}

func TestAuthLogout(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveCredentials(&Credentials{APIKey: testAPIKey, APIURL: defaultAPIURL}))

	cmd := AuthCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"logout"})
	require.NoError(t, cmd.Execute())

	cfg, err := LoadCredentials()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}
