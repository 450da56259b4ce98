package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
)

// ErrUnsafeScript is returned when a removal script does more than delete
// the phase-1 files and run the verification command.
var ErrUnsafeScript = errors.New("unsafe removal script")

// Verify parses script with the bash grammar and checks that:
//   - it parses without syntax errors;
//   - every rm command targets a file in allowed, with no flag but "--";
//   - verifyCommand appears as a command.
func Verify(script []byte, allowed []string, verifyCommand string) error {
	parser := sitter.NewParser()
	parser.SetLanguage(bash.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, script)
	if err != nil {
		return fmt.Errorf("parsing removal script: %w", err)
	}
	defer tree.Close()

	if strings.TrimSpace(verifyCommand) == "" {
		return fmt.Errorf("%w: no verification command", ErrUnsafeScript)
	}

	root := tree.RootNode()
	if root.HasError() {
		return fmt.Errorf("%w: syntax error", ErrUnsafeScript)
	}

	permitted := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		permitted[f] = true
	}

	v := &verifier{
		src:       script,
		permitted: permitted,
		verify:    strings.TrimSpace(verifyCommand),
	}
	v.walk(root)
	if v.err != nil {
		return v.err
	}
	if !v.sawVerify {
		return fmt.Errorf("%w: verification command %q not found", ErrUnsafeScript, v.verify)
	}
	return nil
}

type verifier struct {
	src       []byte
	permitted map[string]bool
	verify    string
	sawVerify bool
	err       error
}

func (v *verifier) walk(node *sitter.Node) {
	if node == nil || v.err != nil {
		return
	}

	if node.Content(v.src) == v.verify {
		v.sawVerify = true
	}
	if node.Type() == "command" {
		v.checkCommand(node)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		v.walk(node.NamedChild(i))
	}
}

func (v *verifier) checkCommand(node *sitter.Node) {
	name := node.ChildByFieldName("name")
	if name == nil || name.Content(v.src) != "rm" {
		return
	}

	targets := 0
	for i := 0; i < int(node.NamedChildCount()); i++ {
		arg := node.NamedChild(i)
		if arg.Type() == "command_name" {
			continue
		}
		value, ok := literal(arg, v.src)
		if !ok {
			v.err = fmt.Errorf("%w: rm argument %s is not a literal", ErrUnsafeScript, arg.Content(v.src))
			return
		}
		if value == "--" {
			continue
		}
		if strings.HasPrefix(value, "-") {
			v.err = fmt.Errorf("%w: rm flag %s", ErrUnsafeScript, value)
			return
		}
		if !v.permitted[value] {
			v.err = fmt.Errorf("%w: rm target %s is not scheduled for removal", ErrUnsafeScript, value)
			return
		}
		targets++
	}
	if targets == 0 {
		v.err = fmt.Errorf("%w: rm without a target", ErrUnsafeScript)
	}
}

// literal returns the value of a word or quoted string argument. Arguments
// with expansions or concatenations are not literals.
func literal(node *sitter.Node, src []byte) (string, bool) {
	text := node.Content(src)
	switch node.Type() {
	case "word":
		if strings.ContainsAny(text, "$`*?[\\") {
			return "", false
		}
		return text, true
	case "raw_string":
		return strings.TrimSuffix(strings.TrimPrefix(text, "'"), "'"), true
	case "string":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if node.NamedChild(i).Type() != "string_content" {
				return "", false
			}
		}
		if strings.ContainsAny(text, "$`\\") {
			return "", false
		}
		return strings.TrimSuffix(strings.TrimPrefix(text, `"`), `"`), true
	}
	return "", false
}
