package gateway

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Last4Sentinel is returned when no card digits can be recovered from the
// notification. Stored as-is; consumers treat it as "unknown card".
const Last4Sentinel = "0000"

// ParamXPrefix is the correlation-token convention: the reg id rides
// through the gateway as "ML|<regID>" and is echoed back verbatim in
// AdditionalDetailsParamX.
const ParamXPrefix = "ML"

var (
	amountFieldCandidates      = []string{"DebitTotal", "Total"}
	installmentFieldCandidates = []string{"TotalPayments", "NumberOfPayments"}
	installmentFreeTextField   = "AdditionalDetails"
	installmentFreeTextPattern = regexp.MustCompile(`\d{1,2}`)
	nonDigitPattern            = regexp.MustCompile(`\D`)
)

// Result is the canonical form of one gateway notification. Normalization
// is total: malformed or absent fields yield the documented defaults,
// never an error.
type Result struct {
	TransactionID string
	RegID         string
	Approved      bool
	AmountMinor   int64
	Installments  int32
	Last4         string
	StatusCode    string
	ErrorMessage  string
}

func NormalizeResult(fields map[string]string) *Result {
	statusCode := strings.TrimSpace(fields["StatusCode"])

	return &Result{
		TransactionID: strings.TrimSpace(fields["TransactionId"]),
		RegID:         RegIDFromParamX(fields["AdditionalDetailsParamX"]),
		Approved:      statusCode == "000" || statusCode == "0",
		AmountMinor:   normalizeAmountMinor(fields),
		Installments:  normalizeInstallments(fields),
		Last4:         normalizeLast4(fields),
		StatusCode:    statusCode,
		ErrorMessage:  strings.TrimSpace(fields["ErrorMessage"]),
	}
}

// BuildParamX builds the correlation token embedded in the init request.
func BuildParamX(regID string) string {
	return ParamXPrefix + "|" + regID
}

// RegIDFromParamX recovers the reg id from the echoed correlation token.
// Returns "" when the token is absent or malformed.
func RegIDFromParamX(paramX string) string {
	parts := strings.Split(paramX, "|")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// normalizeAmountMinor walks the candidate fields most-authoritative
// first. A decimal-looking value is major units rounded to minor; a plain
// value is digit-stripped and read as minor units. First parse wins;
// nothing parseable yields 0 and the caller falls back to the
// registration amount.
func normalizeAmountMinor(fields map[string]string) int64 {
	for _, field := range amountFieldCandidates {
		raw := strings.TrimSpace(fields[field])
		if raw == "" {
			continue
		}
		if amount, ok := parseAmountMinor(raw); ok {
			return amount
		}
	}
	return 0
}

func parseAmountMinor(raw string) (int64, bool) {
	if strings.ContainsAny(raw, ".,") {
		decimal := strings.ReplaceAll(raw, ",", ".")
		if major, err := strconv.ParseFloat(decimal, 64); err == nil && major >= 0 {
			return int64(math.Round(major * 100)), true
		}
	}

	digits := nonDigitPattern.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, false
	}
	minor, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return minor, true
}

func normalizeInstallments(fields map[string]string) int32 {
	for _, field := range installmentFieldCandidates {
		raw := strings.TrimSpace(fields[field])
		if raw == "" {
			continue
		}
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil && n >= 1 {
			return int32(n)
		}
	}

	if match := installmentFreeTextPattern.FindString(fields[installmentFreeTextField]); match != "" {
		if n, err := strconv.ParseInt(match, 10, 32); err == nil && n >= 1 {
			return int32(n)
		}
	}

	return 1
}

func normalizeLast4(fields map[string]string) string {
	for _, field := range []string{"CreditCardNumber", "CardNumber"} {
		digits := nonDigitPattern.ReplaceAllString(fields[field], "")
		if len(digits) >= 4 {
			return digits[len(digits)-4:]
		}
	}
	return Last4Sentinel
}
