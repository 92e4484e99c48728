package formance

import (
	"context"
	"fmt"

	"p2p-exchange-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// The seller delivers crypto to the buyer off-platform; the seller account may go negative.
// All metadata is set inside the script so the Formance transaction is self-describing.
const numscriptSettlement = `vars {
  asset $asset
  number $amount
  account $seller_id
  account $buyer_id
  string $transaction_id
  string $request_id
  string $offer_id
  string $rate
  string $currency
  string $amount_human
}

send [$asset $amount] (
  source = @users:$seller_id allowing unbounded overdraft
  destination = @users:$buyer_id
)

set_tx_meta("event_type", "p2p_settlement")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("request_id", $request_id)
set_tx_meta("offer_id", $offer_id)
set_tx_meta("rate", $rate)
set_tx_meta("currency", $currency)
set_tx_meta("amount_human", $amount_human)
`

// RecordSettlement posts a completed transaction. The transaction id is the reference,
// so a repeated post is reported by Formance as a conflict and treated as success.
func (s *Service) RecordSettlement(ctx context.Context, transaction *models.Transaction) error {
	precision := s.precisionFor(transaction.Crypto)

	postTx := shared.V2PostTransaction{
		Reference: strPtr(transaction.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptSettlement,
			Vars:  settlementVars(transaction, precision),
		},
	}
	if !transaction.CompletedAt.IsZero() {
		completedAt := transaction.CompletedAt
		postTx.Timestamp = &completedAt
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Settlement already journaled", zap.String("transaction_id", transaction.Id))
			return nil
		}
		return fmt.Errorf("error journaling settlement %s: %w", transaction.Id, err)
	}

	zap.L().Info("Settlement journaled in Formance",
		zap.String("transaction_id", transaction.Id),
		zap.String("asset", transaction.Crypto),
		zap.String("amount", transaction.Amount.String()),
		zap.String("seller_id", transaction.SellerId),
		zap.String("buyer_id", transaction.BuyerId))
	return nil
}

func settlementVars(transaction *models.Transaction, precision int) map[string]string {
	return map[string]string{
		"asset":          formanceAsset(transaction.Crypto, precision),
		"amount":         smallestUnits(transaction.Amount, precision),
		"seller_id":      transaction.SellerId,
		"buyer_id":       transaction.BuyerId,
		"transaction_id": transaction.Id,
		"request_id":     transaction.RequestId,
		"offer_id":       transaction.OfferId,
		"rate":           transaction.Rate.String(),
		"currency":       transaction.Currency,
		"amount_human":   transaction.Amount.String(),
	}
}

// smallestUnits converts a human amount into integer units, truncating below precision.
func smallestUnits(amount decimal.Decimal, precision int) string {
	return amount.Shift(int32(precision)).BigInt().String()
}
