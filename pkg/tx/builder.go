package tx

import (
	"fmt"

	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
)

// BuildTransfer constructs the two-entry core for a value transfer:
// −amount from the sender, +amount to the recipient. Self-transfers are
// legal; the amount must be positive. Addresses are canonical hex-32.
func BuildTransfer(from, to string, amount int64, nonce, fees uint64) (*Core, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrAmountNonPositive, amount)
	}
	fromAddr, err := codec.ParseHex32(from)
	if err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	toAddr, err := codec.ParseHex32(to)
	if err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}

	return &Core{
		Type: NonConfidentialTransfer,
		Entries: []Entry{
			{Address: fromAddr, Amount: -amount},
			{Address: toAddr, Amount: amount},
		},
		Nonce: nonce,
		Fees:  fees,
	}, nil
}
