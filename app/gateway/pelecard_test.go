package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRepairPayloadSingleQuotes(t *testing.T) {
	raw := []byte(`{'StatusCode': '000', 'TransactionId': 'TX1'}`)
	var parsed map[string]interface{}
	if err := json.Unmarshal(RepairPayload(raw), &parsed); err != nil {
		t.Fatalf("repaired payload unparseable: %v", err)
	}
	if parsed["StatusCode"] != "000" {
		t.Fatalf("status code = %v", parsed["StatusCode"])
	}
}

func TestRepairPayloadResultDataList(t *testing.T) {
	raw := []byte(`{"ResultData": ["StatusCode": "000", "TransactionId": "TX1"]}`)
	repaired := string(RepairPayload(raw))
	if repaired != `{"ResultData":{"StatusCode": "000", "TransactionId": "TX1"}}` {
		t.Fatalf("unexpected repair result: %s", repaired)
	}
}

func TestParseNotificationNestedResultData(t *testing.T) {
	raw := []byte(`{"ErrorMessage": "outer", "ResultData": {"StatusCode": "000", "TransactionId": "TX1", "ErrorMessage": "inner"}}`)
	fields, err := ParseNotification(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if fields["TransactionId"] != "TX1" {
		t.Fatalf("transaction id = %q", fields["TransactionId"])
	}
	if fields["ErrorMessage"] != "inner" {
		t.Fatalf("result data should take precedence, got %q", fields["ErrorMessage"])
	}
}

func TestParseNotificationFlatBody(t *testing.T) {
	raw := []byte(`{"StatusCode": "000", "Total": 6500, "Approved": true}`)
	fields, err := ParseNotification(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if fields["Total"] != "6500" {
		t.Fatalf("numeric field not stringified, got %q", fields["Total"])
	}
	if fields["Approved"] != "true" {
		t.Fatalf("bool field not stringified, got %q", fields["Approved"])
	}
}

func TestParseNotificationMalformed(t *testing.T) {
	if _, err := ParseNotification([]byte("not json at all")); err == nil {
		t.Fatal("expected error for unrepairable body")
	}
}

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		GatewayURL:  serverURL,
		Terminal:    "0962210",
		User:        "relay",
		Password:    "secret",
		MinPayments: 1,
		MaxPayments: 10,
		HTTPTimeout: time.Second,
	})
}

func TestInitiateReturnsRedirectURL(t *testing.T) {
	var captured map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_ = json.NewEncoder(w).Encode(map[string]string{"URL": "https://gateway.example/hosted/abc"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	redirectURL, err := client.Initiate(context.Background(), &InitiateInput{
		AmountMinor:       6500,
		GoodURL:           "https://relay.example/callback?Status=approved",
		ErrorURL:          "https://relay.example/callback?Status=failed",
		ServerCallbackURL: "https://relay.example/pelecard-callback",
		ParamX:            "ML|R1",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if redirectURL != "https://gateway.example/hosted/abc" {
		t.Fatalf("redirect url = %q", redirectURL)
	}
	if captured["Total"] != "6500" {
		t.Fatalf("total = %q", captured["Total"])
	}
	if captured["ParamX"] != "ML|R1" {
		t.Fatalf("paramx = %q", captured["ParamX"])
	}
	if captured["ActionType"] != "J4" {
		t.Fatalf("action type = %q", captured["ActionType"])
	}
	if captured["ServerSideGoodFeedbackURL"] != "https://relay.example/pelecard-callback" {
		t.Fatalf("server callback = %q", captured["ServerSideGoodFeedbackURL"])
	}
}

func TestInitiateRejectedWithoutURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"Error": "bad terminal"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Initiate(context.Background(), &InitiateInput{AmountMinor: 6500}); err == nil {
		t.Fatal("expected error when gateway returns no URL")
	}
}

func TestInitiateGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Initiate(context.Background(), &InitiateInput{AmountMinor: 6500}); err == nil {
		t.Fatal("expected error for gateway 500")
	}
}
