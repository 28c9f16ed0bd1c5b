package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateInvoice       = "CREATE_INVOICE"
	ActionDeleteInvoice       = "DELETE_INVOICE"
	ActionGeneratePaymentLink = "GENERATE_PAYMENT_LINK"

	// Ledger actions
	ActionConfirmDeposit = "CONFIRM_DEPOSIT"
	ActionRecordPayment  = "RECORD_PAYMENT"
	ActionGatewayPayment = "GATEWAY_PAYMENT"
)

// SystemActor is recorded when a change was not made by a signed-in user.
const SystemActor = "system"

// AuditLog tracks Who, What, and When for ledger changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Actor      string    `gorm:"type:varchar(50);not null;index" json:"actor"` // JWT subject or SystemActor
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
