package model

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the customer-facing settlement state.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentDepositPaid PaymentStatus = "deposit-paid"
	PaymentPaid        PaymentStatus = "paid"
)

// DepositStatus records how the money currently held was obtained.
type DepositStatus string

const (
	DepositNone          DepositStatus = "none"
	DepositPaidOffline   DepositStatus = "paid_offline"
	DepositLinkGenerated DepositStatus = "link_generated"
	DepositPaidLink      DepositStatus = "paid_link"
)

// PaymentSource tells whether money came through the gateway or the counter.
type PaymentSource string

const (
	SourceOffline PaymentSource = "offline"
	SourceLink    PaymentSource = "link"
)

// PaymentMethod enum constants
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "cash"
	MethodTransfer   PaymentMethod = "transfer"
	MethodCheque     PaymentMethod = "cheque"
	MethodCard       PaymentMethod = "card"
	MethodOnlineLink PaymentMethod = "online_link"
)

// PaymentState is the single derived view used by the link and receipt flows.
type PaymentState string

const (
	StateNoPayment        PaymentState = "NO_PAYMENT"
	StateDepositRequested PaymentState = "DEPOSIT_REQUESTED"
	StateDepositPaid      PaymentState = "DEPOSIT_PAID"
	StateFullyPaid        PaymentState = "FULLY_PAID"
)

// LinkAction is the outcome of the reuse policy.
type LinkAction string

const (
	LinkReuse    LinkAction = "reuse"
	LinkGenerate LinkAction = "generate"
)

var (
	// An invoice counts as settled once less than one currency unit is owed.
	settleTolerance = decimal.NewFromInt(1)
	// A redirect amount within this distance of the balance refers to the balance bill.
	balanceMatchTolerance = decimal.NewFromInt(2)
)

// ParseDepositStatus maps stored values, including the legacy "pending", onto the enum.
func ParseDepositStatus(s string) DepositStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(DepositPaidOffline):
		return DepositPaidOffline
	case string(DepositLinkGenerated), "pending":
		return DepositLinkGenerated
	case string(DepositPaidLink):
		return DepositPaidLink
	default:
		return DepositNone
	}
}

func (s *DepositStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = ParseDepositStatus(v)
	case []byte:
		*s = ParseDepositStatus(string(v))
	case nil:
		*s = DepositNone
	default:
		return fmt.Errorf("unsupported deposit status type %T", value)
	}
	return nil
}

func (s DepositStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsPaid reports whether money has been received under this status.
func (s DepositStatus) IsPaid() bool {
	return s == DepositPaidOffline || s == DepositPaidLink
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCheque, MethodCard, MethodOnlineLink:
		return true
	}
	return false
}

// Recompute derives BalanceDue and PaymentStatus from Total and Deposit.
func (inv *Invoice) Recompute() {
	balance := inv.Total.Sub(inv.Deposit).Round(2)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	inv.BalanceDue = balance

	switch {
	case balance.LessThan(settleTolerance):
		inv.PaymentStatus = PaymentPaid
	case inv.Deposit.IsPositive():
		inv.PaymentStatus = PaymentDepositPaid
	default:
		inv.PaymentStatus = PaymentPending
	}
}

// ApplyPayment credits amount to the invoice and re-derives every status field.
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, source PaymentSource) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be greater than zero", ErrValidation)
	}

	inv.Deposit = inv.Deposit.Add(amount).Round(2)
	switch source {
	case SourceLink:
		inv.DepositStatus = DepositPaidLink
	case SourceOffline:
		inv.DepositStatus = DepositPaidOffline
	default:
		return fmt.Errorf("%w: unknown payment source %q", ErrValidation, source)
	}
	inv.Recompute()
	return nil
}

// RequestDeposit marks a deposit as asked for through a payment link.
// It is a no-op once money has been received.
func (inv *Invoice) RequestDeposit(amount decimal.Decimal) {
	if inv.Deposit.IsPositive() || inv.DepositStatus.IsPaid() {
		return
	}
	inv.RequestedDeposit = amount.Round(2)
	inv.DepositStatus = DepositLinkGenerated
}

func (inv *Invoice) IsSettled() bool {
	return inv.PaymentStatus == PaymentPaid
}

// HasOpenBalance reports whether more than the settle tolerance is still owed.
func (inv *Invoice) HasOpenBalance() bool {
	return inv.BalanceDue.GreaterThan(settleTolerance)
}

// MatchesBalance reports whether amount refers to the outstanding balance.
func (inv *Invoice) MatchesBalance(amount decimal.Decimal) bool {
	return amount.Sub(inv.BalanceDue).Abs().LessThan(balanceMatchTolerance)
}

// BilledAmount is what the stored link charges, or zero when that is unknown.
func (inv *Invoice) BilledAmount() decimal.Decimal {
	if inv.LastPaymentAmount.IsPositive() {
		return inv.LastPaymentAmount
	}
	if inv.DepositStatus == DepositLinkGenerated && inv.RequestedDeposit.IsPositive() {
		return inv.RequestedDeposit
	}
	return decimal.Zero
}

// OutstandingAmount is the default amount to bill: the balance, or the total
// when nothing is owed according to the ledger.
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	if inv.BalanceDue.IsPositive() {
		return inv.BalanceDue
	}
	return inv.Total
}

func (inv *Invoice) State() PaymentState {
	switch {
	case inv.IsSettled():
		return StateFullyPaid
	case inv.Deposit.IsPositive():
		return StateDepositPaid
	case inv.DepositStatus == DepositLinkGenerated:
		return StateDepositRequested
	default:
		return StateNoPayment
	}
}

// LinkDecision applies the reuse policy to the stored payment link.
func (inv *Invoice) LinkDecision() LinkAction {
	if inv.LastPaymentLink == "" {
		return LinkGenerate
	}

	switch {
	case inv.DepositStatus == DepositLinkGenerated:
		return LinkReuse
	case inv.Deposit.IsZero() && inv.PaymentStatus != PaymentPaid:
		return LinkReuse
	case inv.DepositStatus.IsPaid() && inv.BalanceDue.GreaterThan(settleTolerance):
		// The stored link already collected the deposit.
		return LinkGenerate
	default:
		return LinkReuse
	}
}

// Validate checks the ledger invariants. Every write path calls it before persisting.
func (inv *Invoice) Validate() error {
	if inv.Total.IsNegative() {
		return fmt.Errorf("%w: negative total", ErrInconsistentState)
	}
	if inv.Deposit.IsNegative() {
		return fmt.Errorf("%w: negative deposit", ErrInconsistentState)
	}

	expected := *inv
	expected.Recompute()
	if !expected.BalanceDue.Equal(inv.BalanceDue) {
		return fmt.Errorf("%w: balance due %s, expected %s", ErrInconsistentState, inv.BalanceDue, expected.BalanceDue)
	}
	if expected.PaymentStatus != inv.PaymentStatus {
		return fmt.Errorf("%w: payment status %s, expected %s", ErrInconsistentState, inv.PaymentStatus, expected.PaymentStatus)
	}

	if inv.DepositStatus.IsPaid() && !inv.Deposit.IsPositive() {
		return fmt.Errorf("%w: deposit status %s without any deposit", ErrInconsistentState, inv.DepositStatus)
	}
	if inv.Deposit.IsPositive() && !inv.DepositStatus.IsPaid() {
		return fmt.Errorf("%w: deposit recorded with deposit status %s", ErrInconsistentState, inv.DepositStatus)
	}

	return nil
}
