package build_llb

// BuildEnvironment accumulates the environment variables and PATH entries a
// step contributes, so they survive filesystem merges and reach the final
// image config.
type BuildEnvironment struct {
	PathList []string
	EnvVars  map[string]string
}

func NewGraphEnvironment() BuildEnvironment {
	return BuildEnvironment{
		PathList: make([]string, 0),
		EnvVars:  make(map[string]string),
	}
}

// Merge folds the other environment into this one. Later values win for
// duplicate variable names.
func (e *BuildEnvironment) Merge(other BuildEnvironment) {
	for _, path := range other.PathList {
		e.AddPath(path)
	}

	for k, v := range other.EnvVars {
		e.EnvVars[k] = v
	}
}

func (e *BuildEnvironment) AddPath(path string) {
	for _, existing := range e.PathList {
		if existing == path {
			return
		}
	}

	e.PathList = append(e.PathList, path)
}

func (e *BuildEnvironment) AddEnvVar(key, value string) {
	e.EnvVars[key] = value
}
