package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Outbox event types.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
)

// TransactionEvent is the outbox payload relayed to the settlement worker
// and the ledger mirror.
type TransactionEvent struct {
	EventType        string            `json:"event_type"`
	TransactionId    string            `json:"transaction_id"`
	Type             TransactionType   `json:"type"`
	Status           TransactionStatus `json:"status"`
	SenderId         string            `json:"sender_id"`
	ReceiverId       string            `json:"receiver_id,omitempty"`
	Counterparty     CounterpartyKind  `json:"counterparty"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         string            `json:"currency"`
	Fee              decimal.Decimal   `json:"fee"`
	CreditedAmount   decimal.Decimal   `json:"credited_amount"`
	CreditedCurrency string            `json:"credited_currency"`
	ExternalRef      string            `json:"external_ref,omitempty"`
	RelatedId        string            `json:"related_id,omitempty"`
	Movements        []EventMovement   `json:"movements,omitempty"`
	OccurredAt       time.Time         `json:"occurred_at"`
}

type EventMovement struct {
	AccountKind AccountKind     `json:"account_kind"`
	AccountId   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
}

// RoutingKey is "transaction.<type>.<status>".
func (e TransactionEvent) RoutingKey() string {
	return fmt.Sprintf("transaction.%s.%s", e.Type, e.Status)
}

// NewTransactionEvent snapshots txn and the movements written with it.
func NewTransactionEvent(eventType string, txn *Transaction, movements []BalanceMovement, at time.Time) TransactionEvent {
	ev := TransactionEvent{
		EventType:        eventType,
		TransactionId:    txn.Id,
		Type:             txn.Type,
		Status:           txn.Status,
		SenderId:         txn.SenderId,
		ReceiverId:       txn.ReceiverId,
		Counterparty:     txn.CounterpartyKind,
		Amount:           txn.Amount,
		Currency:         txn.Currency,
		Fee:              txn.Fee,
		CreditedAmount:   txn.CreditedAmount,
		CreditedCurrency: txn.CreditedCurrency,
		ExternalRef:      txn.ExternalRef,
		RelatedId:        txn.RelatedId,
		OccurredAt:       at,
	}
	for _, m := range movements {
		ev.Movements = append(ev.Movements, EventMovement{
			AccountKind: m.AccountKind,
			AccountId:   m.AccountId,
			Amount:      m.Amount,
			Currency:    m.Currency,
		})
	}
	return ev
}
