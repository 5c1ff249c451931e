// Package dashboard reduces the portal collections into the four summary
// figures shown on the dashboard and keeps them current while loads complete.
package dashboard

import (
	"strings"

	"opensacco-client/pkg/portal"

	"github.com/shopspring/decimal"
)

// withdrawalMarker is matched case-insensitively anywhere in a transaction type.
const withdrawalMarker = "withdrawal"

// Collections are the inputs to Summarize. A nil slice means the collection is
// absent or not loaded yet.
type Collections struct {
	Customers    []portal.Customer
	Accounts     []portal.Account
	Loans        []portal.Loan
	Transactions []portal.Transaction
}

// Summary holds the dashboard figures.
type Summary struct {
	TotalCustomers      int             `json:"total_customers"`
	TotalAccountBalance decimal.Decimal `json:"total_account_balance"`
	TotalLoans          decimal.Decimal `json:"total_loans"`
	TotalWithdrawals    decimal.Decimal `json:"total_withdrawals"`
}

// Summarize computes the summary figures. It never panics; a missing
// collection contributes zero.
func Summarize(c Collections) Summary {
	s := Summary{
		TotalCustomers:      len(c.Customers),
		TotalAccountBalance: decimal.Zero,
		TotalLoans:          decimal.Zero,
		TotalWithdrawals:    decimal.Zero,
	}

	for _, a := range c.Accounts {
		s.TotalAccountBalance = s.TotalAccountBalance.Add(a.Balance)
	}

	for _, l := range c.Loans {
		if l.IsActive() {
			s.TotalLoans = s.TotalLoans.Add(l.Amount)
		}
	}

	for _, t := range c.Transactions {
		if IsWithdrawal(t) {
			s.TotalWithdrawals = s.TotalWithdrawals.Add(t.Amount)
		}
	}

	return s
}

// IsWithdrawal reports whether the transaction type mentions a withdrawal in any case.
func IsWithdrawal(t portal.Transaction) bool {
	return strings.Contains(strings.ToLower(t.TransactionType), withdrawalMarker)
}
