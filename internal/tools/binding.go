package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cugtyt/agentloop/internal/directive"
)

// Param names the remote parameter that receives one positional argument.
type Param struct {
	Name  string
	Lower bool
}

// Binding maps argument positions to named parameters.
type Binding []Param

// ParseBindings reads static bindings of the form
//
//	get_docs=query,library:lower;search=q
//
// Tools are separated by ";", parameters by ",". The ":lower" suffix lower
// cases the argument before it is sent.
func ParseBindings(raw string) (map[string]Binding, error) {
	bindings := make(map[string]Binding)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return bindings, nil
	}

	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		tool, params, ok := strings.Cut(entry, "=")
		tool = strings.TrimSpace(tool)
		if !ok || tool == "" {
			return nil, fmt.Errorf("invalid binding %q: expected tool=param[,param]", entry)
		}

		var binding Binding
		for _, raw := range strings.Split(params, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			name, modifier, _ := strings.Cut(raw, ":")
			switch modifier {
			case "":
				binding = append(binding, Param{Name: name})
			case "lower":
				binding = append(binding, Param{Name: name, Lower: true})
			default:
				return nil, fmt.Errorf("invalid binding %q: unknown modifier %q", entry, modifier)
			}
		}
		bindings[tool] = binding
	}

	return bindings, nil
}

// BindingFromSchema derives the positional order from a tool schema: required
// parameters in declared order, then the remaining properties sorted by name.
func BindingFromSchema(schema Schema) Binding {
	binding := make(Binding, 0, len(schema.Properties))
	seen := make(map[string]bool, len(schema.Properties))

	for _, name := range schema.Required {
		if seen[name] {
			continue
		}
		seen[name] = true
		binding = append(binding, Param{Name: name})
	}

	var rest []string
	for name := range schema.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		binding = append(binding, Param{Name: name})
	}

	return binding
}

// Apply turns positional arguments into named arguments. Surplus arguments
// are rejected; missing trailing ones are left for the server to validate.
func (b Binding) Apply(args []directive.Value) (map[string]any, error) {
	if len(args) > len(b) {
		return nil, fmt.Errorf("got %d arguments, tool accepts %d", len(args), len(b))
	}

	named := make(map[string]any, len(args))
	for i, arg := range args {
		param := b[i]
		if param.Lower {
			named[param.Name] = strings.ToLower(arg.Text())
			continue
		}
		named[param.Name] = arg.Any()
	}

	return named, nil
}
