// Package schema describes the CLI surface as data, so agents and
// shell completion tooling can discover commands without scraping help
// text.
package schema

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
)

// Command is one invocable command path with its local flags. The tree
// is flattened; group commands without a RunE are omitted.
type Command struct {
	Path     string `json:"path"`
	Short    string `json:"short"`
	Mutating bool   `json:"mutating"`
	Flags    []Flag `json:"flags,omitempty"`
}

type Flag struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Usage   string `json:"usage"`
	Default string `json:"default,omitempty"`
}

// Describe returns every runnable command under root, filtered to those
// whose path starts with prefix when one is given.
func Describe(root *cobra.Command, prefix string) ([]Command, error) {
	var commands []Command
	collect(root, &commands)
	sort.Slice(commands, func(i, j int) bool { return commands[i].Path < commands[j].Path })

	prefix = strings.Join(strings.Fields(strings.TrimSpace(prefix)), " ")
	if prefix == "" {
		return commands, nil
	}
	var filtered []Command
	for _, c := range commands {
		if c.Path == prefix || strings.HasPrefix(c.Path, prefix+" ") {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return nil, clierr.New(clierr.CodeUsage, "no command matches "+prefix)
	}
	return filtered, nil
}

func collect(cmd *cobra.Command, out *[]Command) {
	if cmd.Hidden {
		return
	}
	if cmd.Runnable() && cmd.Name() != "help" {
		*out = append(*out, Command{
			Path:     trimRoot(cmd.CommandPath()),
			Short:    cmd.Short,
			Mutating: isMutating(cmd),
			Flags:    localFlags(cmd),
		})
	}
	for _, sub := range cmd.Commands() {
		collect(sub, out)
	}
}

// MutatingAnnotation marks commands that submit transactions.
const MutatingAnnotation = "mutating"

func isMutating(cmd *cobra.Command) bool {
	return cmd.Annotations[MutatingAnnotation] == "true"
}

func localFlags(cmd *cobra.Command) []Flag {
	var items []Flag
	cmd.NonInheritedFlags().VisitAll(func(f *pflag.Flag) {
		items = append(items, Flag{
			Name:    f.Name,
			Type:    f.Value.Type(),
			Usage:   f.Usage,
			Default: f.DefValue,
		})
	})
	return items
}

func trimRoot(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}
