package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecForm(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
		ok      bool
	}{
		{
			name:    "plain invocation",
			command: "python -m app.main",
			want:    []string{"python", "-m", "app.main"},
			ok:      true,
		},
		{
			name:    "quoted arguments",
			command: `gunicorn "carsite.wsgi:application" --bind '0.0.0.0:8000'`,
			want:    []string{"gunicorn", "carsite.wsgi:application", "--bind", "0.0.0.0:8000"},
			ok:      true,
		},
		{
			name:    "command list",
			command: "python manage.py migrate && gunicorn carsite.wsgi:application",
			ok:      false,
		},
		{
			name:    "pipeline",
			command: "cat access.log | grep 500",
			ok:      false,
		},
		{
			name:    "redirect",
			command: "python main.py > main.log",
			ok:      false,
		},
		{
			name:    "variable expansion",
			command: "uvicorn app:app --port $PORT",
			ok:      false,
		},
		{
			name:    "leading assignment",
			command: "PORT=8000 python main.py",
			ok:      false,
		},
		{
			name:    "command substitution",
			command: "python $(cat entrypoint.txt)",
			ok:      false,
		},
		{
			name:    "empty",
			command: "",
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			argv, ok := ExecForm(tt.command)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, argv)
			}
		})
	}
}
