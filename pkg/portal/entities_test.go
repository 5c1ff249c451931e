package portal

import (
	"encoding/json"
	"testing"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  ID
	}{
		{`12`, "12"},
		{`"ACC-001"`, "ACC-001"},
		{`null`, ""},
	}

	for _, tt := range tests {
		var id ID
		if err := json.Unmarshal([]byte(tt.input), &id); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
		}
		if id != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, id, tt.want)
		}
	}

	var id ID
	if err := json.Unmarshal([]byte(`{}`), &id); err == nil {
		t.Error("Expected error for object id")
	}
}

func TestLoan_Decode(t *testing.T) {
	var loans []Loan
	body := `[{"loan_id":1,"account":"ACC-1","amount":"1500.50","loan_status":"active"},
	          {"loan_id":2,"account":7,"amount":200,"loan_status":"Active"}]`
	if err := json.Unmarshal([]byte(body), &loans); err != nil {
		t.Fatal(err)
	}

	if !loans[0].IsActive() || loans[0].Amount.String() != "1500.5" {
		t.Errorf("Unexpected first loan %+v", loans[0])
	}
	if loans[1].IsActive() {
		t.Error("Status match must be exact")
	}
	if loans[1].Account != "7" {
		t.Errorf("Expected numeric account decoded as text, got %q", loans[1].Account)
	}
}

func TestTransaction_Date(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
	}{
		{"2024-05-01", true},
		{"2024-05-01T10:30:00Z", true},
		{"2024-05-01T10:30:00.123456Z", true},
		{"2024-05-01T10:30:00", true},
		{"", false},
		{"May 1st", false},
	}

	for _, tt := range tests {
		ts, ok := Transaction{TransactionDate: tt.input}.Date()
		if ok != tt.ok {
			t.Errorf("Date(%q) ok = %v, want %v", tt.input, ok, tt.ok)
		}
		if ok && (ts.Year() != 2024 || ts.Month() != 5 || ts.Day() != 1) {
			t.Errorf("Date(%q) = %v", tt.input, ts)
		}
	}
}

func TestRole_Display(t *testing.T) {
	if RoleLoan.Display() != "Loan Officer" {
		t.Errorf("Unexpected display %q", RoleLoan.Display())
	}
	if Role("XX").Display() != "XX" {
		t.Error("Unknown roles must be shown unchanged")
	}
}

func TestTokens_Valid(t *testing.T) {
	if (Tokens{Access: "a"}).Valid() {
		t.Error("A pair without refresh token must be invalid")
	}
	if !(Tokens{Access: "a", Refresh: "r"}).Valid() {
		t.Error("Expected valid pair")
	}
}
