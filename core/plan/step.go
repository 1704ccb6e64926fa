package plan

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

type Step struct {
	// The name of the step
	Name string `json:"name,omitempty" jsonschema:"description=The name of the step"`

	// Steps that must run before this step
	DependsOn []string `json:"dependsOn,omitempty" jsonschema:"description=The names of the steps that this step depends on"`

	// An image to start this step from instead of the plan's base image
	StartingImage string `json:"startingImage,omitempty" jsonschema:"description=An image to start this step from instead of the plan's base image"`

	// The commands to run in this step
	Commands *[]Command `json:"commands,omitempty" jsonschema:"description=The commands to run in this step"`

	// The variables available to every command in this step
	Variables map[string]string `json:"variables,omitempty" jsonschema:"description=The variables available to every command in this step"`

	// The assets available to file commands. The key is the asset name referenced by the command
	Assets map[string]string `json:"assets,omitempty" jsonschema:"description=The assets available to file commands in this step. The key is the asset name referenced by the command"`

	// The caches available to every exec command in this step. Each name must
	// refer to a cache at the top level of the plan
	Caches []string `json:"caches,omitempty" jsonschema:"description=The caches available to every exec command in this step. Each name must refer to a cache at the top level of the plan"`

	// Paths this step contributes to the final image. When set, only these
	// paths carry over
	Outputs *[]string `json:"outputs,omitempty" jsonschema:"description=Paths this step contributes to the final image. When set only these paths carry over"`

	// The secrets this step uses
	Secrets *[]string `json:"secrets,omitempty" jsonschema:"description=The names of the secrets this step uses"`
}

func NewStep(name string) *Step {
	secrets := []string{"*"} // default to using all secrets
	return &Step{
		Name:      name,
		Assets:    map[string]string{},
		Variables: map[string]string{},
		Secrets:   &secrets,
	}
}

func (s *Step) AddCommands(commands []Command) {
	if s.Commands == nil {
		s.Commands = &[]Command{}
	}
	*s.Commands = append(*s.Commands, commands...)
}

func (s *Step) DependOn(names ...string) {
	s.DependsOn = append(s.DependsOn, names...)
}

func (s *Step) UnmarshalJSON(data []byte) error {
	type Alias Step
	aux := &struct {
		Commands *[]json.RawMessage `json:"commands"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.Commands != nil {
		commands := make([]Command, 0, len(*aux.Commands))
		for _, rawCmd := range *aux.Commands {
			cmd, err := UnmarshalCommand(rawCmd)
			if err != nil {
				return err
			}
			commands = append(commands, cmd)
		}
		s.Commands = &commands
	}

	return nil
}

func (Step) JSONSchemaExtend(schema *jsonschema.Schema) {
	// The step name comes from the map key in user config, not the object
	var required []string
	for _, prop := range schema.Required {
		if prop != "name" {
			required = append(required, prop)
		}
	}
	schema.Required = required
	schema.Properties.Delete("name")

	var commandsDescription string
	if current, ok := schema.Properties.Get("commands"); ok {
		commandsDescription = current.Description
	}

	schema.Properties.Set("commands", &jsonschema.Schema{
		Type:        "array",
		Description: commandsDescription,
		Items:       CommandsSchema(),
	})
}

// CommandsSchema describes the polymorphic command encoding: a JSON object
// for one of the command types, or a compact string form.
func CommandsSchema() *jsonschema.Schema {
	stringSchema := &jsonschema.Schema{
		Type:        "string",
		Description: "Strings are parsed as a command. 'RUN:', 'COPY:', 'ENV:', 'PATH:' and 'FILE:' prefixes select the command type; anything else runs as a shell command",
	}

	availableCommands := []*jsonschema.Schema{
		stringSchema,
		reflectSchema(ExecCommand{}),
		reflectSchema(PathCommand{}),
		reflectSchema(VariableCommand{}),
		reflectSchema(CopyCommand{}),
		reflectSchema(FileCommand{}),
	}

	return &jsonschema.Schema{
		OneOf: availableCommands,
	}
}

func reflectSchema(v any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	return r.Reflect(v)
}
