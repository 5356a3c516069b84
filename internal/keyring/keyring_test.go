package keyring_test

import (
	"testing"

	"github.com/alkime/docvoice/internal/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestSetAndGet(t *testing.T) {
	gokeyring.MockInit()

	assert.False(t, keyring.IsSet(keyring.OpenAI))

	require.NoError(t, keyring.Set(keyring.OpenAI, "sk-test"))
	assert.True(t, keyring.IsSet(keyring.OpenAI))

	value, err := keyring.Get(keyring.OpenAI)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", value)

	_, err = keyring.Get(keyring.Anthropic)
	assert.ErrorContains(t, err, "anthropic")
}

func TestResolve(t *testing.T) {
	gokeyring.MockInit()
	require.NoError(t, keyring.Set(keyring.Anthropic, "from-keychain"))

	t.Setenv("ANTHROPIC_API_KEY", "")
	assert.Equal(t, "explicit", keyring.Resolve(keyring.Anthropic, "explicit"))
	assert.Equal(t, "from-keychain", keyring.Resolve(keyring.Anthropic, ""))

	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	assert.Equal(t, "from-env", keyring.Resolve(keyring.Anthropic, ""))

	t.Setenv("OPENAI_API_KEY", "")
	assert.Empty(t, keyring.Resolve(keyring.OpenAI, ""))
}

func TestAPIKeyFromServiceName(t *testing.T) {
	for _, key := range keyring.AllAPIKeys() {
		got, err := keyring.APIKeyFromServiceName(key.DisplayName())
		require.NoError(t, err)
		assert.Equal(t, key, got)
	}

	_, err := keyring.APIKeyFromServiceName("gemini")
	assert.ErrorContains(t, err, "unknown service")
}
