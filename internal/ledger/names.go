package ledger

import (
	"fmt"

	"cardgame/go-client/internal/rpckit"
)

const maxNameLen = 12

// ValidateAccountName checks the ledger's account name alphabet: up to 12
// characters from '.', 'a'-'z' and '1'-'5', not ending with '.'.
func ValidateAccountName(name string) error {
	if name == "" || len(name) > maxNameLen {
		return rpckit.InvalidInput(fmt.Sprintf("account name %q must be 1-%d characters", name, maxNameLen))
	}
	for _, r := range name {
		switch {
		case r == '.', r >= 'a' && r <= 'z', r >= '1' && r <= '5':
		default:
			return rpckit.InvalidInput(fmt.Sprintf("account name %q contains %q", name, r))
		}
	}
	if name[len(name)-1] == '.' {
		return rpckit.InvalidInput(fmt.Sprintf("account name %q must not end with '.'", name))
	}
	return nil
}
