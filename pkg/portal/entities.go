package portal

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Collection names served by the portal API as JSON lists.
const (
	CollectionCustomers    = "customers"
	CollectionAccounts     = "accounts"
	CollectionLoans        = "loans"
	CollectionTransactions = "transactions"
)

// LoanStatusActive is the only loan status counted towards outstanding loans.
const LoanStatusActive = "active"

// Role is the staff role code attached to a user profile.
type Role string

// Profile roles known to the back office.
const (
	RoleAdmin      Role = "AD"
	RoleManager    Role = "MA"
	RoleOperation  Role = "OP"
	RoleFinance    Role = "FI"
	RoleLoan       Role = "LO"
	RoleAccountant Role = "AC"
)

// Display returns the human readable role name.
// Unknown codes are returned unchanged.
func (r Role) Display() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleManager:
		return "Manager"
	case RoleOperation:
		return "Operation Manager"
	case RoleFinance:
		return "Finance Officer"
	case RoleLoan:
		return "Loan Officer"
	case RoleAccountant:
		return "Accountant"
	default:
		return string(r)
	}
}

// Profile holds the portal-specific part of a user record.
type Profile struct {
	Role         Role   `json:"role"`
	RoleDisplay  string `json:"role_display,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// ID is an entity identifier. The API emits numeric primary keys for some
// collections and account numbers as strings for others; both decode here.
type ID string

// UnmarshalJSON accepts a JSON number, string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as text.
func (id ID) String() string {
	return string(id)
}

// Customer is a member record. It is read-only to this client.
type Customer struct {
	ID       ID      `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Profile  Profile `json:"profile"`
}

// User is the signed-in staff user as returned by the profile endpoint.
type User struct {
	ID       ID      `json:"id,omitempty"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Profile  Profile `json:"profile"`
}

// Account is a member savings account.
type Account struct {
	ID      ID              `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// Loan is a loan issued against an account.
type Loan struct {
	LoanID     ID              `json:"loan_id"`
	Account    ID              `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	LoanStatus string          `json:"loan_status"`
}

// IsActive reports whether the loan status is exactly "active".
func (l Loan) IsActive() bool {
	return l.LoanStatus == LoanStatusActive
}

// Transaction is a single account movement.
type Transaction struct {
	TransactionID   ID              `json:"transaction_id"`
	Account         ID              `json:"account"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date"`
}

// Date parses TransactionDate. The API emits either a date or an RFC 3339 timestamp.
func (t Transaction) Date() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, t.TransactionDate); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Tokens is the bearer credential pair issued by the token endpoint.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Valid reports whether both tokens are present.
func (t Tokens) Valid() bool {
	return t.Access != "" && t.Refresh != ""
}
