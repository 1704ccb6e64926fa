package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Command is a single action within a step. Commands serialize to a compact
// string form (e.g. "RUN:pip install -r requirements.txt") when they carry no
// extra options and to a JSON object otherwise.
type Command interface {
	CommandType() string
}

type ExecOptions struct {
	Caches     []string
	CustomName string
}

// ExecCommand runs a shell command during the build
type ExecCommand struct {
	Cmd        string   `json:"cmd" jsonschema:"description=The shell command to execute (e.g. 'pip install -r requirements.txt')"`
	Caches     []string `json:"caches,omitempty" jsonschema:"description=Optional cache names mounted while this command runs. Each name must refer to a cache at the top level of the plan"`
	CustomName string   `json:"customName,omitempty" jsonschema:"description=Optional display name for this command in build output"`
}

// PathCommand prepends a directory to PATH for this and later steps
type PathCommand struct {
	Path string `json:"path" jsonschema:"description=Directory to prepend to PATH for this and later steps"`
}

// VariableCommand sets an environment variable for the rest of the build
type VariableCommand struct {
	Name  string `json:"name" jsonschema:"description=Name of the environment variable to set (e.g. 'PYTHONUNBUFFERED')"`
	Value string `json:"value" jsonschema:"description=Value of the environment variable (e.g. '1')"`
}

// CopyCommand copies files into the build, from the local context by default
// or from another image when Image is set
type CopyCommand struct {
	Image string `json:"image,omitempty" jsonschema:"description=Optional image to copy from instead of the local build context"`
	Src   string `json:"src" jsonschema:"description=Source path to copy from"`
	Dest  string `json:"dest" jsonschema:"description=Destination path to copy to"`
}

type FileOptions struct {
	Mode       os.FileMode
	CustomName string
}

// FileCommand writes a step asset to a file during the build
type FileCommand struct {
	Path       string      `json:"path" jsonschema:"description=Absolute path of the file to create"`
	Name       string      `json:"name" jsonschema:"description=Name of the step asset holding the file contents"`
	Mode       os.FileMode `json:"mode,omitempty" jsonschema:"description=Optional Unix permission mode (e.g. 0644)"`
	CustomName string      `json:"customName,omitempty" jsonschema:"description=Optional display name for this command in build output"`
}

func (e ExecCommand) CommandType() string     { return "exec" }
func (p PathCommand) CommandType() string     { return "path" }
func (v VariableCommand) CommandType() string { return "variable" }
func (c CopyCommand) CommandType() string     { return "copy" }
func (f FileCommand) CommandType() string     { return "file" }

func NewExecCommand(cmd string, options ...ExecOptions) Command {
	exec := ExecCommand{Cmd: cmd}
	if len(options) > 0 {
		exec.Caches = options[0].Caches
		exec.CustomName = options[0].CustomName
	}
	return exec
}

func NewPathCommand(path string) Command {
	return PathCommand{Path: path}
}

func NewVariableCommand(name, value string) Command {
	return VariableCommand{Name: name, Value: value}
}

func NewCopyCommand(src string, dest ...string) Command {
	destPath := src
	if len(dest) > 0 {
		destPath = dest[0]
	}
	return CopyCommand{Src: src, Dest: destPath}
}

func NewFileCommand(path, name string, options ...FileOptions) Command {
	file := FileCommand{Path: path, Name: name}
	if len(options) > 0 {
		file.Mode = options[0].Mode
		file.CustomName = options[0].CustomName
	}
	return file
}

func (e ExecCommand) MarshalJSON() ([]byte, error) {
	// The string form has nowhere to carry cache references
	if len(e.Caches) > 0 {
		type alias ExecCommand
		return json.Marshal(alias(e))
	}
	return json.Marshal(stringForm("RUN", e.CustomName, e.Cmd))
}

func (p PathCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(stringForm("PATH", "", p.Path))
}

func (v VariableCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(stringForm("ENV", "", v.Name+"="+v.Value))
}

func (c CopyCommand) MarshalJSON() ([]byte, error) {
	if c.Image != "" {
		type alias CopyCommand
		return json.Marshal(alias(c))
	}
	return json.Marshal(stringForm("COPY", "", c.Src+" "+c.Dest))
}

func (f FileCommand) MarshalJSON() ([]byte, error) {
	if f.Mode != 0 {
		type alias FileCommand
		return json.Marshal(alias(f))
	}
	return json.Marshal(stringForm("FILE", f.CustomName, f.Path+" "+f.Name))
}

func stringForm(prefix, customName, payload string) string {
	if customName != "" {
		prefix += "#" + customName
	}
	return prefix + ":" + payload
}

func UnmarshalCommand(data []byte) (Command, error) {
	if cmd, err := UnmarshalJSONCommand(data); err == nil {
		return cmd, nil
	}

	return UnmarshalStringCommand(data)
}

// UnmarshalJSONCommand decodes the object form, picking the command type from
// the fields present.
func UnmarshalJSONCommand(data []byte) (Command, error) {
	var rawMap map[string]interface{}
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return nil, err
	}

	if _, ok := rawMap["cmd"]; ok {
		var cmd ExecCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	}
	if _, ok := rawMap["path"]; ok {
		if _, ok := rawMap["name"]; ok {
			var file FileCommand
			if err := json.Unmarshal(data, &file); err != nil {
				return nil, err
			}
			return file, nil
		}
		var path PathCommand
		if err := json.Unmarshal(data, &path); err != nil {
			return nil, err
		}
		return path, nil
	}
	if _, ok := rawMap["name"]; ok && rawMap["value"] != nil {
		var variable VariableCommand
		if err := json.Unmarshal(data, &variable); err != nil {
			return nil, err
		}
		return variable, nil
	}
	if _, ok := rawMap["src"]; ok {
		var copyCmd CopyCommand
		if err := json.Unmarshal(data, &copyCmd); err != nil {
			return nil, err
		}
		return copyCmd, nil
	}

	return nil, fmt.Errorf("unknown command type: %v", rawMap)
}

// UnmarshalStringCommand decodes the compact string form. "RUN:", "PATH:",
// "ENV:", "COPY:" and "FILE:" prefixes select the command type, with an
// optional "#name" display name after the prefix. Anything else is an exec
// command.
func UnmarshalStringCommand(data []byte) (Command, error) {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil, err
	}

	if !strings.Contains(str, ":") {
		return NewExecCommand(str), nil
	}

	prefix, payload, _ := strings.Cut(str, ":")
	cmdType, customName, _ := strings.Cut(prefix, "#")

	switch cmdType {
	case "RUN":
		return NewExecCommand(payload, ExecOptions{CustomName: customName}), nil
	case "PATH":
		return NewPathCommand(payload), nil
	case "ENV":
		name, value, ok := strings.Cut(payload, "=")
		if !ok {
			return nil, fmt.Errorf("invalid ENV command: %s", str)
		}
		return NewVariableCommand(name, value), nil
	case "COPY":
		parts := strings.Fields(payload)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid COPY command: %s", str)
		}
		return NewCopyCommand(parts[0], parts[1]), nil
	case "FILE":
		parts := strings.Fields(payload)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid FILE command: %s", str)
		}
		return NewFileCommand(parts[0], parts[1], FileOptions{CustomName: customName}), nil
	}

	// A bare shell command that happens to contain a colon
	return NewExecCommand(str), nil
}
