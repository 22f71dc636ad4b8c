package schema

import (
	"testing"

	"github.com/spf13/cobra"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "simpleswap"}
	pool := &cobra.Command{Use: "pool", Short: "Pool state"}
	status := &cobra.Command{Use: "status", Short: "Reserves and balances", RunE: func(*cobra.Command, []string) error { return nil }}
	pool.AddCommand(status)
	swap := &cobra.Command{Use: "swap", Short: "Token swaps"}
	run := &cobra.Command{
		Use:         "run",
		Short:       "Execute a swap",
		Annotations: map[string]string{MutatingAnnotation: "true"},
		RunE:        func(*cobra.Command, []string) error { return nil },
	}
	run.Flags().String("amount", "", "input amount")
	swap.AddCommand(run)
	root.AddCommand(pool, swap)
	return root
}

func TestDescribeFlattensRunnableCommands(t *testing.T) {
	commands, err := Describe(testRoot(), "")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if len(commands) != 2 {
		t.Fatalf("got %d commands, want the two runnable leaves", len(commands))
	}
	if commands[0].Path != "pool status" || commands[1].Path != "swap run" {
		t.Fatalf("paths = %q, %q", commands[0].Path, commands[1].Path)
	}
	if commands[0].Mutating {
		t.Fatalf("pool status must not be marked mutating")
	}
	if !commands[1].Mutating {
		t.Fatalf("swap run must be marked mutating")
	}
	if len(commands[1].Flags) != 1 || commands[1].Flags[0].Name != "amount" {
		t.Fatalf("swap run flags = %+v", commands[1].Flags)
	}
}

func TestDescribeFiltersByPrefix(t *testing.T) {
	commands, err := Describe(testRoot(), "swap")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if len(commands) != 1 || commands[0].Path != "swap run" {
		t.Fatalf("filtered = %+v", commands)
	}

	if _, err := Describe(testRoot(), "nope"); !clierr.Is(err, clierr.CodeUsage) {
		t.Fatalf("error = %v, want usage", err)
	}
}
