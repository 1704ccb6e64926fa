package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandStringForms(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected string
	}{
		{
			name:     "exec command",
			command:  NewExecCommand("pip install --no-cache-dir -r requirements.txt"),
			expected: `"RUN:pip install --no-cache-dir -r requirements.txt"`,
		},
		{
			name:     "exec command with custom name",
			command:  NewExecCommand("echo hello", ExecOptions{CustomName: "say hello"}),
			expected: `"RUN#say hello:echo hello"`,
		},
		{
			name:     "path command",
			command:  NewPathCommand("/usr/local/bin"),
			expected: `"PATH:/usr/local/bin"`,
		},
		{
			name:     "variable command",
			command:  NewVariableCommand("PYTHONUNBUFFERED", "1"),
			expected: `"ENV:PYTHONUNBUFFERED=1"`,
		},
		{
			name:     "copy command",
			command:  NewCopyCommand("requirements.txt", "/app/requirements.txt"),
			expected: `"COPY:requirements.txt /app/requirements.txt"`,
		},
		{
			name:     "copy command with default dest",
			command:  NewCopyCommand("."),
			expected: `"COPY:. ."`,
		},
		{
			name:     "file command",
			command:  NewFileCommand("/etc/app/config.json", "config"),
			expected: `"FILE:/etc/app/config.json config"`,
		},
		{
			name:     "file command with custom name",
			command:  NewFileCommand("/etc/app/config.json", "config", FileOptions{CustomName: "write config"}),
			expected: `"FILE#write config:/etc/app/config.json config"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.command)
			require.NoError(t, err)
			require.Equal(t, tt.expected, string(data))

			decoded, err := UnmarshalCommand(data)
			require.NoError(t, err)
			require.Equal(t, tt.command, decoded)

			roundTrip, err := json.Marshal(decoded)
			require.NoError(t, err)
			require.Equal(t, tt.expected, string(roundTrip))
		})
	}
}

func TestCommandObjectForms(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name: "exec command with caches",
			command: NewExecCommand("sh -c 'apt-get update && apt-get install -y curl'", ExecOptions{
				Caches: []string{"apt-cache", "apt-lists"},
			}),
		},
		{
			name:    "copy command from image",
			command: CopyCommand{Image: "python:3.10-slim", Src: "/usr/local/bin/python", Dest: "/usr/local/bin/python"},
		},
		{
			name:    "file command with mode",
			command: NewFileCommand("/usr/local/bin/start.sh", "start", FileOptions{Mode: 0755}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.command)
			require.NoError(t, err)
			require.Equal(t, byte('{'), data[0], "expected object form: %s", data)

			decoded, err := UnmarshalCommand(data)
			require.NoError(t, err)
			require.Equal(t, tt.command, decoded)
		})
	}
}

func TestUnmarshalBareExecString(t *testing.T) {
	cmd, err := UnmarshalCommand([]byte(`"python -m app.main"`))
	require.NoError(t, err)
	require.Equal(t, NewExecCommand("python -m app.main"), cmd)

	// A colon that does not form a known prefix stays part of the command
	cmd, err = UnmarshalCommand([]byte(`"echo foo:bar"`))
	require.NoError(t, err)
	require.Equal(t, NewExecCommand("echo foo:bar"), cmd)
}

func TestUnmarshalCommandErrors(t *testing.T) {
	_, err := UnmarshalCommand([]byte(`"ENV:MISSING_EQUALS"`))
	require.Error(t, err)

	_, err = UnmarshalCommand([]byte(`"COPY:only-src"`))
	require.Error(t, err)

	_, err = UnmarshalCommand([]byte(`{"unknown": true}`))
	require.Error(t, err)

	_, err = UnmarshalCommand([]byte(`{invalid json`))
	require.Error(t, err)
}
