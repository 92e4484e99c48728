package formance

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Position is a user's net journaled settlement in one asset.
// Positive means the user received more than they delivered.
type Position struct {
	Asset   string
	Balance decimal.Decimal
}

// GetUserPositions returns all non-zero positions for a user, sorted by asset.
func (s *Service) GetUserPositions(ctx context.Context, userId string) ([]Position, error) {
	zap.L().Debug("Getting user positions from Formance", zap.String("user_id", userId))

	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: "users:" + userId,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get account for user %s: %w", userId, err)
	}

	var positions []Position
	for fAsset, vol := range resp.V2AccountResponse.Data.Volumes {
		bal := volumeBalance(vol)
		if bal == nil || bal.Sign() == 0 {
			continue
		}
		symbol := assetSymbol(fAsset)
		positions = append(positions, Position{
			Asset:   symbol,
			Balance: bigIntToDecimal(bal, s.precisionFor(symbol)),
		})
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].Asset < positions[j].Asset })
	return positions, nil
}

// volumeBalance extracts the balance from a volume, deriving it from input and output when absent.
func volumeBalance(vol shared.V2Volume) *big.Int {
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest-unit to a human-readable decimal.
func bigIntToDecimal(raw *big.Int, precision int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precision))
}

// assetSymbol extracts the symbol from a Formance asset like "USDT/6".
func assetSymbol(fAsset string) string {
	for i, c := range fAsset {
		if c == '/' {
			return fAsset[:i]
		}
	}
	return fAsset
}
