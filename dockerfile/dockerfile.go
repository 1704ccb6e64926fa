// Package dockerfile renders a build plan as a Dockerfile. Cache mounts and
// inline files need BuildKit, so every rendered file starts with the
// dockerfile:1 syntax directive.
package dockerfile

import (
	"encoding/json"
	"fmt"
	"maps"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/slipway-dev/slipway/core/graph"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/utils"
)

const buildStageName = "build"

// Render produces Dockerfile text for a build plan. The output is
// deterministic: variables and labels render sorted and steps render in a
// stable topological order, so rendering the same plan twice yields
// byte-identical files.
func Render(buildPlan *plan.BuildPlan) (string, error) {
	if buildPlan.BaseImage == "" {
		return "", fmt.Errorf("plan has no base image")
	}

	steps, err := orderedSteps(buildPlan)
	if err != nil {
		return "", err
	}

	multiStage := buildPlan.Start.BaseImage != "" && buildPlan.Start.BaseImage != buildPlan.BaseImage

	workDir := buildPlan.WorkDir
	if workDir == "" {
		workDir = plan.DefaultWorkDir
	}

	var sb strings.Builder
	sb.WriteString("# syntax=docker/dockerfile:1\n\n")

	if multiStage {
		fmt.Fprintf(&sb, "FROM %s AS %s\n", buildPlan.BaseImage, buildStageName)
	} else {
		fmt.Fprintf(&sb, "FROM %s\n", buildPlan.BaseImage)
	}
	fmt.Fprintf(&sb, "WORKDIR %s\n", workDir)

	if len(buildPlan.Variables) > 0 {
		sb.WriteString("\n")
		writeEnv(&sb, buildPlan.Variables)
	}

	// Declaring the secrets as build args folds their values into the cache
	// key of every following RUN, matching how the buildkit builder
	// invalidates on secret changes
	if len(buildPlan.Secrets) > 0 {
		sb.WriteString("\n")
		for _, secret := range slices.Sorted(slices.Values(buildPlan.Secrets)) {
			fmt.Fprintf(&sb, "ARG %s\n", secret)
		}
	}

	for _, step := range steps {
		if err := writeStep(&sb, step, buildPlan.Caches); err != nil {
			return "", err
		}
	}

	if multiStage {
		fmt.Fprintf(&sb, "\nFROM %s\n", buildPlan.Start.BaseImage)
		fmt.Fprintf(&sb, "WORKDIR %s\n", workDir)
		for _, output := range utils.RemoveDuplicates(buildPlan.Start.Outputs) {
			target := output
			if !path.IsAbs(target) {
				target = path.Join(workDir, target)
			}
			fmt.Fprintf(&sb, "COPY --from=%s %s %s\n", buildStageName, target, target)
		}
	}

	writeStart(&sb, buildPlan)

	return sb.String(), nil
}

// orderedSteps returns the plan's steps so that every step appears after the
// steps it depends on. Dockerfiles are linear, so the DAG flattens here.
func orderedSteps(buildPlan *plan.BuildPlan) ([]*plan.Step, error) {
	g := graph.NewGraph()
	for i := range buildPlan.Steps {
		g.AddNode(&stepNode{step: &buildPlan.Steps[i]})
	}

	for _, step := range buildPlan.Steps {
		node, _ := g.GetNode(step.Name)
		for _, dep := range step.DependsOn {
			parent, ok := g.GetNode(dep)
			if !ok {
				return nil, fmt.Errorf("step %s depends on unknown step %s", step.Name, dep)
			}
			graph.Link(parent, node)
		}
	}

	ordered, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	steps := make([]*plan.Step, 0, len(ordered))
	for _, node := range ordered {
		steps = append(steps, node.(*stepNode).step)
	}
	return steps, nil
}

func writeStep(sb *strings.Builder, step *plan.Step, caches map[string]plan.Cache) error {
	if step.StartingImage != "" {
		return fmt.Errorf("step %s starts from its own image, which only the buildkit builder supports", step.Name)
	}

	hasCommands := step.Commands != nil && len(*step.Commands) > 0
	if !hasCommands && len(step.Variables) == 0 {
		return nil
	}

	fmt.Fprintf(sb, "\n# %s\n", step.Name)

	if len(step.Variables) > 0 {
		writeEnv(sb, step.Variables)
	}

	if !hasCommands {
		return nil
	}

	for _, cmd := range *step.Commands {
		if err := writeCommand(sb, step, cmd, caches); err != nil {
			return err
		}
	}
	return nil
}

func writeCommand(sb *strings.Builder, step *plan.Step, cmd plan.Command, caches map[string]plan.Cache) error {
	switch c := cmd.(type) {
	case plan.ExecCommand:
		if c.CustomName != "" {
			fmt.Fprintf(sb, "# %s\n", c.CustomName)
		}
		mounts, err := cacheMounts(step, c, caches)
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "RUN %s%s\n", mounts, c.Cmd)
	case plan.CopyCommand:
		if c.Image != "" {
			fmt.Fprintf(sb, "COPY --from=%s %s %s\n", c.Image, c.Src, c.Dest)
			return nil
		}
		fmt.Fprintf(sb, "COPY %s %s\n", c.Src, c.Dest)
	case plan.VariableCommand:
		fmt.Fprintf(sb, "ENV %s=%s\n", c.Name, quoteValue(c.Value))
	case plan.PathCommand:
		fmt.Fprintf(sb, "ENV PATH=\"%s:$PATH\"\n", c.Path)
	case plan.FileCommand:
		return writeFile(sb, step, c)
	default:
		return fmt.Errorf("step %s has a command that cannot be rendered: %T", step.Name, cmd)
	}
	return nil
}

// cacheMounts renders the --mount flags for an exec command, combining the
// step level caches with the command's own.
func cacheMounts(step *plan.Step, cmd plan.ExecCommand, caches map[string]plan.Cache) (string, error) {
	names := utils.RemoveDuplicates(append(append([]string{}, step.Caches...), cmd.Caches...))
	slices.Sort(names)

	var sb strings.Builder
	for _, name := range names {
		cache, ok := caches[name]
		if !ok {
			return "", fmt.Errorf("step %s mounts undefined cache %s", step.Name, name)
		}

		fmt.Fprintf(&sb, "--mount=type=cache,id=%s,target=%s", name, cache.Directory)
		if cache.Type == plan.CacheTypeLocked {
			sb.WriteString(",sharing=locked")
		}
		sb.WriteString(" ")
	}
	return sb.String(), nil
}

// writeFile renders a file command as a heredoc COPY carrying the asset
// contents inline.
func writeFile(sb *strings.Builder, step *plan.Step, cmd plan.FileCommand) error {
	contents, ok := step.Assets[cmd.Name]
	if !ok {
		return fmt.Errorf("step %s writes %s from unknown asset %s", step.Name, cmd.Path, cmd.Name)
	}

	if cmd.CustomName != "" {
		fmt.Fprintf(sb, "# %s\n", cmd.CustomName)
	}

	chmod := ""
	if cmd.Mode != 0 {
		chmod = fmt.Sprintf("--chmod=%o ", cmd.Mode)
	}

	delim := heredocDelimiter(contents)
	fmt.Fprintf(sb, "COPY %s<<\"%s\" %s\n", chmod, delim, cmd.Path)
	sb.WriteString(contents)
	if !strings.HasSuffix(contents, "\n") {
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "%s\n", delim)
	return nil
}

func heredocDelimiter(contents string) string {
	delim := "EOF"
	for i := 2; slices.Contains(strings.Split(contents, "\n"), delim); i++ {
		delim = fmt.Sprintf("EOF%d", i)
	}
	return delim
}

func writeStart(sb *strings.Builder, buildPlan *plan.BuildPlan) {
	start := buildPlan.Start

	if len(start.Variables) > 0 {
		sb.WriteString("\n")
		writeEnv(sb, start.Variables)
	}

	if len(start.Paths) > 0 {
		paths := utils.RemoveDuplicates(start.Paths)
		fmt.Fprintf(sb, "\nENV PATH=\"%s:$PATH\"\n", strings.Join(paths, ":"))
	}

	if len(start.Ports) > 0 {
		ports := slices.Sorted(slices.Values(start.Ports))
		fmt.Fprintf(sb, "\nEXPOSE %s\n", strings.Join(ports, " "))
	}

	if len(start.Labels) > 0 {
		sb.WriteString("\n")
		writeLabels(sb, start.Labels)
	}

	if start.Command != "" {
		sb.WriteString("\n# An orchestrator normally supplies the command a container runs with.\n")
		sb.WriteString("# This default applies only when none is given, e.g. a plain docker run.\n")
		sb.WriteString(cmdInstruction(start.Command))
		sb.WriteString("\n")
	}
}

// cmdInstruction renders the start command in exec form when it is a plain
// invocation, falling back to shell form for anything a shell must interpret.
// CMD rather than ENTRYPOINT, so a runtime command override replaces the
// default instead of being appended to it.
func cmdInstruction(command string) string {
	if argv, ok := utils.ExecForm(command); ok {
		encoded, err := json.Marshal(argv)
		if err == nil {
			return "CMD " + string(encoded)
		}
	}
	return "CMD " + command
}

func writeEnv(sb *strings.Builder, vars map[string]string) {
	entries := make([]string, 0, len(vars))
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		entries = append(entries, fmt.Sprintf("%s=%s", key, quoteValue(vars[key])))
	}
	writeInstruction(sb, "ENV", entries)
}

func writeLabels(sb *strings.Builder, labels map[string]string) {
	entries := make([]string, 0, len(labels))
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		entries = append(entries, fmt.Sprintf("%s=%s", key, quoteValue(labels[key])))
	}
	writeInstruction(sb, "LABEL", entries)
}

// writeInstruction renders one instruction with an entry per line, continued
// with backslashes.
func writeInstruction(sb *strings.Builder, instruction string, entries []string) {
	for i, entry := range entries {
		prefix := "    "
		if i == 0 {
			prefix = instruction + " "
		}
		suffix := " \\"
		if i == len(entries)-1 {
			suffix = ""
		}
		fmt.Fprintf(sb, "%s%s%s\n", prefix, entry, suffix)
	}
}

var bareValuePattern = regexp.MustCompile(`^[A-Za-z0-9_./:@+-]+$`)

// quoteValue quotes a value for an ENV or LABEL instruction. Plain values
// render bare; anything else is double quoted with $, " and \ escaped so the
// Dockerfile parser takes them literally.
func quoteValue(value string) string {
	if bareValuePattern.MatchString(value) {
		return value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`).Replace(value)
	return `"` + escaped + `"`
}

type stepNode struct {
	step     *plan.Step
	parents  []graph.Node
	children []graph.Node
}

func (n *stepNode) GetName() string            { return n.step.Name }
func (n *stepNode) GetParents() []graph.Node   { return n.parents }
func (n *stepNode) GetChildren() []graph.Node  { return n.children }
func (n *stepNode) SetParents(p []graph.Node)  { n.parents = p }
func (n *stepNode) SetChildren(c []graph.Node) { n.children = c }
