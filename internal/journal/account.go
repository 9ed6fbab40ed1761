package journal

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAccount normalises a hex account address to its checksummed form.
// An empty input is the anonymous account.
func ParseAccount(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}
	if !common.IsHexAddress(input) {
		return "", fmt.Errorf("invalid account: %s", input)
	}
	return common.HexToAddress(input).Hex(), nil
}
