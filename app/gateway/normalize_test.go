package gateway

import "testing"

func TestNormalizeAmountMinor(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   int64
	}{
		{"plain minor units", map[string]string{"DebitTotal": "6500"}, 6500},
		{"decimal major units", map[string]string{"DebitTotal": "65.00"}, 6500},
		{"comma decimal major units", map[string]string{"DebitTotal": "65,00"}, 6500},
		{"fractional major units", map[string]string{"DebitTotal": "1.5"}, 150},
		{"falls back to total field", map[string]string{"Total": "6500"}, 6500},
		{"debit total wins over total", map[string]string{"DebitTotal": "6500", "Total": "9999"}, 6500},
		{"unparseable first candidate", map[string]string{"DebitTotal": "n/a", "Total": "6500"}, 6500},
		{"embedded text", map[string]string{"DebitTotal": "ILS 6500"}, 6500},
		{"nothing parseable", map[string]string{"DebitTotal": "---"}, 0},
		{"absent", map[string]string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeResult(tt.fields)
			if result.AmountMinor != tt.want {
				t.Fatalf("amount = %d, want %d", result.AmountMinor, tt.want)
			}
		})
	}
}

func TestNormalizeInstallments(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   int32
	}{
		{"explicit total payments", map[string]string{"TotalPayments": "3"}, 3},
		{"secondary field", map[string]string{"NumberOfPayments": "6"}, 6},
		{"free text scan", map[string]string{"AdditionalDetails": "split over 12 charges"}, 12},
		{"zero ignored", map[string]string{"TotalPayments": "0"}, 1},
		{"absent defaults to one", map[string]string{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeResult(tt.fields)
			if result.Installments != tt.want {
				t.Fatalf("installments = %d, want %d", result.Installments, tt.want)
			}
		})
	}
}

func TestNormalizeLast4(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{"masked card number", map[string]string{"CreditCardNumber": "4580***********1234"}, "1234"},
		{"secondary masked field", map[string]string{"CardNumber": "****5678"}, "5678"},
		{"fewer than four digits", map[string]string{"CreditCardNumber": "**12"}, Last4Sentinel},
		{"absent", map[string]string{}, Last4Sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeResult(tt.fields)
			if result.Last4 != tt.want {
				t.Fatalf("last4 = %q, want %q", result.Last4, tt.want)
			}
		})
	}
}

func TestNormalizeApproved(t *testing.T) {
	tests := []struct {
		statusCode string
		want       bool
	}{
		{"000", true},
		{"0", true},
		{"033", false},
		{"", false},
	}

	for _, tt := range tests {
		result := NormalizeResult(map[string]string{"StatusCode": tt.statusCode})
		if result.Approved != tt.want {
			t.Fatalf("approved for status %q = %v, want %v", tt.statusCode, result.Approved, tt.want)
		}
	}
}

func TestRegIDFromParamX(t *testing.T) {
	if got := RegIDFromParamX("ML|R1"); got != "R1" {
		t.Fatalf("reg id = %q, want R1", got)
	}
	if got := RegIDFromParamX("R1"); got != "" {
		t.Fatalf("reg id without delimiter = %q, want empty", got)
	}
	if got := RegIDFromParamX(""); got != "" {
		t.Fatalf("reg id for empty token = %q, want empty", got)
	}
	if got := RegIDFromParamX(BuildParamX("R7")); got != "R7" {
		t.Fatalf("round-tripped reg id = %q, want R7", got)
	}
}

func TestNormalizeResultFullNotification(t *testing.T) {
	result := NormalizeResult(map[string]string{
		"TransactionId":           "TX1",
		"AdditionalDetailsParamX": "ML|R1",
		"StatusCode":              "000",
		"DebitTotal":              "6500",
		"TotalPayments":           "2",
		"CreditCardNumber":        "4580***********1234",
		"ErrorMessage":            "",
	})

	if result.TransactionID != "TX1" {
		t.Fatalf("transaction id = %q", result.TransactionID)
	}
	if result.RegID != "R1" {
		t.Fatalf("reg id = %q", result.RegID)
	}
	if !result.Approved {
		t.Fatal("expected approved")
	}
	if result.AmountMinor != 6500 {
		t.Fatalf("amount = %d", result.AmountMinor)
	}
	if result.Installments != 2 {
		t.Fatalf("installments = %d", result.Installments)
	}
	if result.Last4 != "1234" {
		t.Fatalf("last4 = %q", result.Last4)
	}
}
