package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvs(t *testing.T) {
	env, err := FromEnvs([]string{
		"VAR1=value1",
		"VAR2=value2",
		"SLIPWAY_APT_PACKAGES=curl libpq-dev",
	})

	require.NoError(t, err)
	require.Equal(t, env.GetVariable("VAR1"), "value1")
	require.Equal(t, env.GetVariable("VAR2"), "value2")
	require.Equal(t, env.GetVariable("SLIPWAY_APT_PACKAGES"), "curl libpq-dev")
}

func TestFromEnvsLooksUpBareNames(t *testing.T) {
	t.Setenv("SLIPWAY_TEST_PASSTHROUGH", "from-process")

	env, err := FromEnvs([]string{"SLIPWAY_TEST_PASSTHROUGH"})
	require.NoError(t, err)
	require.Equal(t, "from-process", env.GetVariable("SLIPWAY_TEST_PASSTHROUGH"))
}

func TestGetConfigVariable(t *testing.T) {
	env := NewEnvironment(&map[string]string{
		"SLIPWAY_PYTHON_VERSION": "3.12",
	})

	value, name := env.GetConfigVariable("PYTHON_VERSION")
	require.Equal(t, "3.12", value)
	require.Equal(t, "SLIPWAY_PYTHON_VERSION", name)

	value, name = env.GetConfigVariable("NODE_VERSION")
	require.Empty(t, value)
	require.Empty(t, name)
}

func TestIsConfigVariableTruthy(t *testing.T) {
	env := NewEnvironment(&map[string]string{
		"SLIPWAY_NO_CACHE": "1",
		"SLIPWAY_VERBOSE":  "true",
		"SLIPWAY_DISABLED": "0",
	})

	require.True(t, env.IsConfigVariableTruthy("NO_CACHE"))
	require.True(t, env.IsConfigVariableTruthy("VERBOSE"))
	require.False(t, env.IsConfigVariableTruthy("DISABLED"))
	require.False(t, env.IsConfigVariableTruthy("UNSET"))
}

func TestGetSecretsWithPrefix(t *testing.T) {
	env := NewEnvironment(&map[string]string{
		"DB_HOST":     "localhost",
		"DB_PASSWORD": "secret",
		"PORT":        "8000",
	})

	secrets := env.GetSecretsWithPrefix("DB_")
	require.ElementsMatch(t, []string{"DB_HOST", "DB_PASSWORD"}, secrets)
}
