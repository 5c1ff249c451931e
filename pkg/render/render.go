// Package render writes dashboard cards and collection tables as aligned text.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"opensacco-client/pkg/dashboard"
	"opensacco-client/pkg/portal"

	"github.com/shopspring/decimal"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// Money formats an amount with two decimals and a currency sign.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Cards writes the four dashboard summary cards.
func Cards(w io.Writer, s dashboard.Summary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Customers\t%d\n", s.TotalCustomers)
	fmt.Fprintf(tw, "Total Account Balance\t%s\n", Money(s.TotalAccountBalance))
	fmt.Fprintf(tw, "Total Amount Withdrawn\t%s\n", Money(s.TotalWithdrawals))
	fmt.Fprintf(tw, "Active Loans\t%s\n", Money(s.TotalLoans))
	return tw.Flush()
}

// Transactions writes a transactions table.
func Transactions(w io.Writer, txs []portal.Transaction) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tACCOUNT\tTYPE\tAMOUNT\tDATE")
	for _, t := range txs {
		date := t.TransactionDate
		if ts, ok := t.Date(); ok {
			date = ts.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.TransactionID, t.Account, t.TransactionType, Money(t.Amount), date)
	}
	return tw.Flush()
}

// Loans writes a loans table.
func Loans(w io.Writer, loans []portal.Loan) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "LOAN ID\tACCOUNT\tAMOUNT\tSTATUS")
	for _, l := range loans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.LoanID, l.Account, Money(l.Amount), l.LoanStatus)
	}
	return tw.Flush()
}

// Customers writes a customers table.
func Customers(w io.Writer, customers []portal.Customer) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE")
	for _, c := range customers {
		role := c.Profile.RoleDisplay
		if role == "" {
			role = c.Profile.Role.Display()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Username, c.Email, role)
	}
	return tw.Flush()
}

// Accounts writes an accounts table.
func Accounts(w io.Writer, accounts []portal.Account) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tBALANCE")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%s\t%s\n", a.ID, Money(a.Balance))
	}
	return tw.Flush()
}

// Profile writes the signed-in user's details. imageURL may be empty.
func Profile(w io.Writer, u portal.User, imageURL string) error {
	tw := newTable(w)
	username := u.Username
	if username == "" {
		username = "Guest"
	}
	role := u.Profile.RoleDisplay
	if role == "" {
		role = "User"
	}
	email := u.Email
	if email == "" {
		email = "No email available"
	}
	fmt.Fprintf(tw, "Username\t%s\n", username)
	fmt.Fprintf(tw, "Role\t%s\n", role)
	fmt.Fprintf(tw, "Email\t%s\n", email)
	if imageURL != "" {
		fmt.Fprintf(tw, "Image\t%s\n", imageURL)
	}
	return tw.Flush()
}

// Dashboard writes the cards followed by the recent transactions and loans.
func Dashboard(w io.Writer, snap dashboard.Snapshot) error {
	if err := Cards(w, snap.Summary); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRecent transactions")
	if err := Transactions(w, snap.RecentTransactions); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nRecent loans")
	if err := Loans(w, snap.RecentLoans); err != nil {
		return err
	}

	if len(snap.Errors) > 0 {
		fmt.Fprintln(w)
		for _, name := range []string{
			portal.CollectionCustomers,
			portal.CollectionAccounts,
			portal.CollectionLoans,
			portal.CollectionTransactions,
		} {
			if msg, ok := snap.Errors[name]; ok {
				fmt.Fprintf(w, "Error loading %s: %s\n", name, msg)
			}
		}
	}
	return nil
}

// FilterLoans keeps loans whose account contains filter, ignoring case.
// An empty filter keeps everything.
func FilterLoans(loans []portal.Loan, filter string) []portal.Loan {
	if filter == "" {
		return loans
	}
	out := make([]portal.Loan, 0, len(loans))
	for _, l := range loans {
		if containsFold(l.Account.String(), filter) {
			out = append(out, l)
		}
	}
	return out
}

// FilterTransactions keeps transactions whose account contains filter, ignoring case.
func FilterTransactions(txs []portal.Transaction, filter string) []portal.Transaction {
	if filter == "" {
		return txs
	}
	out := make([]portal.Transaction, 0, len(txs))
	for _, t := range txs {
		if containsFold(t.Account.String(), filter) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
