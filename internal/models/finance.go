package models

import "time"

// FinanceStatus is shared by expense requests and income sources.
type FinanceStatus string

const (
	FinancePending     FinanceStatus = "pending"
	FinanceApproved    FinanceStatus = "approved"
	FinanceTransferred FinanceStatus = "transferred"
	FinanceClosed      FinanceStatus = "closed"
	FinanceRejected    FinanceStatus = "rejected"
)

// FinanceAction moves a finance record.
type FinanceAction string

const (
	FinanceActionApprove  FinanceAction = "approve"
	FinanceActionReject   FinanceAction = "reject"
	FinanceActionTransfer FinanceAction = "transfer"
	FinanceActionClose    FinanceAction = "close"
)

var financeTransitions = map[FinanceAction]struct {
	from FinanceStatus
	to   FinanceStatus
}{
	FinanceActionApprove:  {FinancePending, FinanceApproved},
	FinanceActionReject:   {FinancePending, FinanceRejected},
	FinanceActionTransfer: {FinanceApproved, FinanceTransferred},
	FinanceActionClose:    {FinanceTransferred, FinanceClosed},
}

// NextFinanceStatus resolves the target of action from the current status.
func NextFinanceStatus(current FinanceStatus, action FinanceAction) (FinanceStatus, bool) {
	t, ok := financeTransitions[action]
	if !ok || t.from != current {
		return "", false
	}
	return t.to, true
}

// ExpenseRequest is a request to pay out event money.
type ExpenseRequest struct {
	ID                 string        `db:"id" json:"id"`
	EventConfigID      string        `db:"event_config_id" json:"event_config_id"`
	Title              string        `db:"title" json:"title"`
	Description        *string       `db:"description" json:"description,omitempty"`
	RequestedAmount    int64         `db:"requested_amount" json:"requested_amount"`
	ApprovedAmount     *int64        `db:"approved_amount" json:"approved_amount,omitempty"`
	BankName           *string       `db:"bank_name" json:"bank_name,omitempty"`
	BankAccountNumber  *string       `db:"bank_account_number" json:"bank_account_number,omitempty"`
	BankAccountHolder  *string       `db:"bank_account_holder" json:"bank_account_holder,omitempty"`
	TransferReceiptURL *string       `db:"transfer_receipt_url" json:"transfer_receipt_url,omitempty"`
	Status             FinanceStatus `db:"status" json:"status"`
	RequestedBy        string        `db:"requested_by" json:"requested_by"`
	ReviewedBy         *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNote         *string       `db:"review_note" json:"review_note,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// IncomeSource is money pledged or received outside registrations.
type IncomeSource struct {
	ID            string        `db:"id" json:"id"`
	EventConfigID string        `db:"event_config_id" json:"event_config_id"`
	Name          string        `db:"name" json:"name"`
	Description   *string       `db:"description" json:"description,omitempty"`
	Amount        int64         `db:"amount" json:"amount"`
	Status        FinanceStatus `db:"status" json:"status"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	ReviewedBy    *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewNote    *string       `db:"review_note" json:"review_note,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// FinanceFilter scopes finance listings.
type FinanceFilter struct {
	EventConfigID string
	Status        *FinanceStatus
	Page          int
	PageSize      int
}

// CreateExpenseRequest payload.
type CreateExpenseRequest struct {
	Title             string  `json:"title" validate:"required,max=200"`
	Description       *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	RequestedAmount   int64   `json:"requested_amount" validate:"gt=0"`
	BankName          *string `json:"bank_name,omitempty" validate:"omitempty,max=120"`
	BankAccountNumber *string `json:"bank_account_number,omitempty" validate:"omitempty,max=40"`
	BankAccountHolder *string `json:"bank_account_holder,omitempty" validate:"omitempty,max=120"`
}

// CreateIncomeRequest payload.
type CreateIncomeRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Amount      int64   `json:"amount" validate:"gt=0"`
}

// FinanceTransitionRequest applies an action to an expense or income record.
type FinanceTransitionRequest struct {
	Action         FinanceAction `json:"action" validate:"required,oneof=approve reject transfer close"`
	Note           *string       `json:"note,omitempty" validate:"omitempty,max=500"`
	ApprovedAmount *int64        `json:"approved_amount,omitempty" validate:"omitempty,gt=0"`
	ReceiptURL     *string       `json:"receipt_url,omitempty" validate:"omitempty,url"`
}
