package dashboard

import (
	"testing"

	"opensacco-client/pkg/portal"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummarize_EmptyInputsYieldZero(t *testing.T) {
	tests := []struct {
		name string
		in   Collections
	}{
		{"nil", Collections{}},
		{"empty", Collections{
			Customers:    []portal.Customer{},
			Accounts:     []portal.Account{},
			Loans:        []portal.Loan{},
			Transactions: []portal.Transaction{},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.in)
			if s.TotalCustomers != 0 {
				t.Errorf("TotalCustomers = %d, want 0", s.TotalCustomers)
			}
			for name, v := range map[string]decimal.Decimal{
				"TotalAccountBalance": s.TotalAccountBalance,
				"TotalLoans":          s.TotalLoans,
				"TotalWithdrawals":    s.TotalWithdrawals,
			} {
				if !v.IsZero() {
					t.Errorf("%s = %s, want 0", name, v)
				}
			}
		})
	}
}

func TestSummarize_AccountBalance(t *testing.T) {
	s := Summarize(Collections{Accounts: []portal.Account{
		{ID: "1", Balance: d("100")},
		{ID: "2", Balance: d("250")},
	}})
	if !s.TotalAccountBalance.Equal(d("350")) {
		t.Errorf("TotalAccountBalance = %s, want 350", s.TotalAccountBalance)
	}
}

func TestSummarize_OnlyActiveLoans(t *testing.T) {
	s := Summarize(Collections{Loans: []portal.Loan{
		{LoanID: "1", Amount: d("500"), LoanStatus: "active"},
		{LoanID: "2", Amount: d("300"), LoanStatus: "closed"},
		{LoanID: "3", Amount: d("700"), LoanStatus: "Active"},
		{LoanID: "4", Amount: d("900"), LoanStatus: ""},
	}})
	if !s.TotalLoans.Equal(d("500")) {
		t.Errorf("TotalLoans = %s, want 500", s.TotalLoans)
	}
}

func TestSummarize_Withdrawals(t *testing.T) {
	tests := []struct {
		name string
		txs  []portal.Transaction
		want string
	}{
		{
			name: "example",
			txs: []portal.Transaction{
				{TransactionType: "Withdrawal", Amount: d("40")},
				{TransactionType: "Deposit", Amount: d("60")},
			},
			want: "40",
		},
		{
			name: "mixed case and substring",
			txs: []portal.Transaction{
				{TransactionType: "Withdrawal", Amount: d("10")},
				{TransactionType: "withdrawal", Amount: d("20")},
				{TransactionType: "ATM WITHDRAWAL", Amount: d("30.50")},
				{TransactionType: "Cash Withdrawal Reversal", Amount: d("5")},
				{TransactionType: "Withdraw", Amount: d("1000")},
				{TransactionType: "Deposit", Amount: d("60")},
			},
			want: "65.5",
		},
		{
			name: "none",
			txs: []portal.Transaction{
				{TransactionType: "Deposit", Amount: d("60")},
			},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(Collections{Transactions: tt.txs})
			if !s.TotalWithdrawals.Equal(d(tt.want)) {
				t.Errorf("TotalWithdrawals = %s, want %s", s.TotalWithdrawals, tt.want)
			}
		})
	}
}

func TestSummarize_Customers(t *testing.T) {
	s := Summarize(Collections{Customers: make([]portal.Customer, 3)})
	if s.TotalCustomers != 3 {
		t.Errorf("TotalCustomers = %d, want 3", s.TotalCustomers)
	}
}

func TestSummarize_DecimalPrecision(t *testing.T) {
	s := Summarize(Collections{Accounts: []portal.Account{
		{Balance: d("0.1")},
		{Balance: d("0.2")},
	}})
	if s.TotalAccountBalance.String() != "0.3" {
		t.Errorf("TotalAccountBalance = %s, want 0.3", s.TotalAccountBalance)
	}
}
