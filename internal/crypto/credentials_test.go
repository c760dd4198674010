package crypto

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	sealed, err := Seal([]byte("top secret"), "pw")
	require.NoError(t, err)

	plain, err := Open(sealed, "pw")
	require.NoError(t, err)
	assert.Equal(t, "top secret", string(plain))

	_, err = Open(sealed, "wrong")
	assert.Error(t, err)
}

func TestSealRejectsEmptyPassword(t *testing.T) {
	_, err := Seal([]byte("x"), "")
	assert.Error(t, err)
}

func TestResolveEnv(t *testing.T) {
	env := map[string]string{
		"BINANCE_API_KEY":    "k",
		"BINANCE_API_SECRET": "s",
	}
	r := &Resolver{Getenv: func(k string) string { return env[k] }}

	creds, err := r.Resolve("env:binance")
	require.NoError(t, err)
	assert.Equal(t, "k", creds.APIKey)
	assert.Equal(t, "s", creds.APISecret)

	_, err = r.Resolve("env:missing")
	assert.Error(t, err)
}

func TestResolveFile(t *testing.T) {
	plain, err := json.Marshal(Credentials{APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	sealed, err := Seal(plain, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "okx.json")
	require.NoError(t, os.WriteFile(path, sealed, 0o600))

	creds, err := NewResolver("pw").Resolve("file:" + path)
	require.NoError(t, err)
	assert.Equal(t, "key", creds.APIKey)
	assert.Equal(t, "secret", creds.APISecret)
}

func TestResolveEmptyAndMalformed(t *testing.T) {
	r := NewResolver("")

	creds, err := r.Resolve("")
	require.NoError(t, err)
	assert.True(t, creds.Empty())

	_, err = r.Resolve("vault")
	assert.Error(t, err)
	_, err = r.Resolve("vault:path")
	assert.Error(t, err)
}

func TestCredentialsNeverPrintSecret(t *testing.T) {
	c := Credentials{APIKey: "abc", APISecret: "xyz"}
	assert.NotContains(t, fmt.Sprint(c), "xyz")
	assert.NotContains(t, fmt.Sprintf("%v", c), "abc")
	assert.Equal(t, "credentials(***)", c.LogValue().String())
}
