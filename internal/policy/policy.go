// Package policy gates commands that move funds. Read-only mode lets
// the CLI run against a funded key without any risk of spending.
package policy

import (
	"fmt"
	"strings"

	clierr "github.com/GuillermoSiaira/simpleswap-cli/internal/errors"
)

// mutatingCommands submit transactions. Everything else only reads
// chain or explorer state.
var mutatingCommands = map[string]bool{
	"swap run":      true,
	"liquidity add": true,
}

func CheckCommandAllowed(readOnly bool, commandPath string) error {
	if !readOnly {
		return nil
	}
	path := normalize(commandPath)
	if mutatingCommands[path] {
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is blocked in read-only mode", path))
	}
	return nil
}

func normalize(v string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
	return strings.Join(parts, " ")
}
