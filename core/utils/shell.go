package utils

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ExecForm splits a shell command into its argv when the command is a single
// plain invocation with no pipes, redirects, expansions or assignments.
// Commands that need a shell to interpret them return ok=false.
func ExecForm(command string) ([]string, bool) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil || len(prog.Stmts) != 1 {
		return nil, false
	}

	stmt := prog.Stmts[0]
	if stmt.Background || stmt.Negated || stmt.Coprocess || len(stmt.Redirs) > 0 {
		return nil, false
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 || len(call.Args) == 0 {
		return nil, false
	}

	argv := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		lit, ok := literalWord(word)
		if !ok {
			return nil, false
		}
		argv = append(argv, lit)
	}
	return argv, true
}

// literalWord flattens a word whose parts carry no expansions. Quoted parts
// contribute their contents; anything dynamic rejects the word.
func literalWord(word *syntax.Word) (string, bool) {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			if strings.Contains(p.Value, `\`) {
				return "", false
			}
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			if p.Dollar {
				return "", false
			}
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				lit, ok := inner.(*syntax.Lit)
				if !ok {
					return "", false
				}
				sb.WriteString(lit.Value)
			}
		default:
			return "", false
		}
	}
	return sb.String(), true
}
