package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseContractAddress validates a 0x-prefixed 20-byte contract address.
func ParseContractAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("contract address is required")
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid contract address: %s", input)
	}
	address := common.HexToAddress(input)
	if address == (common.Address{}) {
		return common.Address{}, fmt.Errorf("contract address must not be zero")
	}
	return address, nil
}
