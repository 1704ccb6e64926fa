package buildkit

import (
	"github.com/docker/cli/cli/config/configfile"
	"github.com/docker/cli/cli/config/types"
	"github.com/moby/buildkit/session"
	"github.com/moby/buildkit/session/auth/authprovider"
)

type RegistryOptions struct {
	URL      string
	Username string
	Password string
}

// createAuthProvider builds a session attachable that answers the daemon's
// credential requests for the given registry.
func createAuthProvider(registryURL, username, password string) session.Attachable {
	configFile := configfile.New("")
	configFile.AuthConfigs = map[string]types.AuthConfig{
		registryURL: {
			Username: username,
			Password: password,
		},
	}

	return authprovider.NewDockerAuthProvider(authprovider.DockerAuthProviderConfig{
		ConfigFile: configFile,
	})
}
