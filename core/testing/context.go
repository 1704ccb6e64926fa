package testing

import (
	"testing"

	"github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/generate"
)

// CreateGenerateContext creates a new GenerateContext for testing purposes
func CreateGenerateContext(t *testing.T, path string) *generate.GenerateContext {
	t.Helper()

	userApp, err := app.NewApp(path)
	if err != nil {
		t.Fatalf("error creating app: %v", err)
	}

	env := app.NewEnvironment(nil)

	ctx, err := generate.NewGenerateContext(userApp, env)
	if err != nil {
		t.Fatalf("error creating generate context: %v", err)
	}

	return ctx
}
