package finance

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound       = errors.New("finance entry not found")
	ErrDescriptionRequired = errors.New("entry description is required")
	ErrInvalidKind         = errors.New("entry kind must be income or expense")
)

type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type EntryStatus string

const (
	StatusPaid      EntryStatus = "paid"
	StatusPending   EntryStatus = "pending"
	StatusCancelled EntryStatus = "cancelled"
)

type PaymentMethod string

const (
	MethodCash       PaymentMethod = "cash"
	MethodPix        PaymentMethod = "pix"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodInvoice    PaymentMethod = "invoice"
)

// Entry is one line of the clinic's financial ledger. Amounts are integer
// cents.
type Entry struct {
	ID            uuid.UUID      `json:"id"`
	PatientID     *uuid.UUID     `json:"patient_id,omitempty"`
	AppointmentID *uuid.UUID     `json:"appointment_id,omitempty"`
	Description   string         `json:"description"`
	AmountCents   int64          `json:"amount_cents"`
	Kind          Kind           `json:"kind"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Status        EntryStatus    `json:"status"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	PaidDate      *time.Time     `json:"paid_date,omitempty"`
	PatientName   *string        `json:"patient_name,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// UpsertRequest carries the writable fields; a nil ID means insert.
type UpsertRequest struct {
	ID            *uuid.UUID     `json:"id,omitempty"`
	PatientID     *uuid.UUID     `json:"patient_id,omitempty"`
	AppointmentID *uuid.UUID     `json:"appointment_id,omitempty"`
	Description   string         `json:"description"`
	AmountCents   int64          `json:"amount_cents"`
	Kind          Kind           `json:"kind"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	Status        EntryStatus    `json:"status"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	PaidDate      *time.Time     `json:"paid_date,omitempty"`
}

func (r *UpsertRequest) Validate() error {
	if strings.TrimSpace(r.Description) == "" {
		return ErrDescriptionRequired
	}
	if r.Kind != KindIncome && r.Kind != KindExpense {
		return ErrInvalidKind
	}
	return nil
}

// Filter narrows List results; zero values mean "no constraint".
type Filter struct {
	Kind      Kind
	Status    EntryStatus
	PatientID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// MonthKPIs is the dashboard header: registry size, appointment volume and
// cash position for one calendar month. Revenue counts only paid income;
// expenses count every expense row regardless of payment status.
type MonthKPIs struct {
	ActivePatients    int64 `json:"active_patients"`
	AppointmentsMonth int64 `json:"appointments_month"`
	RevenueCents      int64 `json:"revenue_cents"`
	ExpensesCents     int64 `json:"expenses_cents"`
	BalanceCents      int64 `json:"balance_cents"`
}

// MonthFlow is one bucket of the year cash-flow chart.
type MonthFlow struct {
	Month        time.Month `json:"month"`
	IncomeCents  int64      `json:"income_cents"`
	ExpenseCents int64      `json:"expense_cents"`
}
