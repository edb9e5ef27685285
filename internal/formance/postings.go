package formance

import (
	"context"
	"fmt"
	"strings"

	"wallet-ledger-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// transitAccount nets to zero per currency after every mirrored event,
// because engine movements balance per currency.
const transitAccount = "platform:transit"

// Deliver mirrors the movements carried by event as one Formance transaction.
// Events without movements (status-only updates) are skipped. Re-delivery of
// the same event is absorbed by the ledger's reference uniqueness.
func (m *Mirror) Deliver(ctx context.Context, event models.TransactionEvent) error {
	post, ok := buildPosting(event)
	if !ok {
		return nil
	}

	_, err := m.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            m.ledger,
		V2PostTransaction: post,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Formance posting already recorded", zap.String("reference", *post.Reference))
			return nil
		}
		return fmt.Errorf("error mirroring transaction %s: %w", event.TransactionId, err)
	}

	zap.L().Info("Transaction mirrored to Formance",
		zap.String("transaction_id", event.TransactionId),
		zap.String("reference", *post.Reference),
		zap.Int("movements", len(event.Movements)))
	return nil
}

// buildPosting renders event as a Numscript posting. Each debit flows from
// the account into the transit account and each credit flows out of it.
func buildPosting(event models.TransactionEvent) (shared.V2PostTransaction, bool) {
	var script strings.Builder
	var sends strings.Builder
	vars := map[string]string{
		"transaction_id":   event.TransactionId,
		"transaction_type": string(event.Type),
		"status":           string(event.Status),
		"event_type":       event.EventType,
	}

	script.WriteString("vars {\n")
	n := 0
	for _, mv := range event.Movements {
		if mv.Amount.IsZero() {
			continue
		}
		asset, amount, account := fmt.Sprintf("asset_%d", n), fmt.Sprintf("amount_%d", n), fmt.Sprintf("account_%d", n)
		fmt.Fprintf(&script, "  asset $%s\n  number $%s\n  account $%s\n", asset, amount, account)

		vars[asset] = formanceAsset(mv.Currency)
		vars[amount] = smallestUnits(mv)
		vars[account] = accountAddress(mv.AccountKind, mv.AccountId)

		if mv.Amount.IsNegative() {
			fmt.Fprintf(&sends, "send [$%s $%s] (\n  source = $%s allowing unbounded overdraft\n  destination = @%s\n)\n\n",
				asset, amount, account, transitAccount)
		} else {
			fmt.Fprintf(&sends, "send [$%s $%s] (\n  source = @%s allowing unbounded overdraft\n  destination = $%s\n)\n\n",
				asset, amount, transitAccount, account)
		}
		n++
	}
	if n == 0 {
		return shared.V2PostTransaction{}, false
	}

	script.WriteString("  string $transaction_id\n  string $transaction_type\n  string $status\n  string $event_type\n}\n\n")
	script.WriteString(sends.String())
	script.WriteString(`set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("transaction_type", $transaction_type)
set_tx_meta("status", $status)
set_tx_meta("event_type", $event_type)
`)

	occurred := event.OccurredAt
	return shared.V2PostTransaction{
		Reference: strPtr(reference(event)),
		Timestamp: &occurred,
		Script: &shared.V2PostTransactionScript{
			Plain: script.String(),
			Vars:  vars,
		},
	}, true
}

// reference is unique per (transaction, event type): a top-up's confirmation
// posts again under the same transaction id.
func reference(event models.TransactionEvent) string {
	suffix := strings.TrimPrefix(event.EventType, "transaction.")
	return event.TransactionId + "-" + suffix
}

// accountAddress maps a ledger account to its Formance address. User-owned
// accounts live under users:, system accounts under platform:.
func accountAddress(kind models.AccountKind, id string) string {
	switch kind {
	case models.AccountKindClearing, models.AccountKindRevenue:
		return fmt.Sprintf("platform:%s:%s", kind, id)
	default:
		return fmt.Sprintf("users:%s:%s", kind, id)
	}
}

func smallestUnits(mv models.EventMovement) string {
	return mv.Amount.Abs().Shift(precisionFor(mv.Currency)).BigInt().String()
}
