package accounting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		APIURL:      serverURL,
		CompanyID:   12345,
		APIKey:      "key",
		HTTPTimeout: time.Second,
	})
}

func sampleInput() *CreateDocumentInput {
	return &CreateDocumentInput{
		ExternalIdentifier: "FA1",
		ExternalReference:  "R1",
		CustomerName:       "Dana Levi",
		CustomerEmail:      "dana@example.com",
		ItemName:           "Intro Course",
		AmountMinor:        6500,
		Last4:              "1234",
		Installments:       2,
		Comments:           "Pelecard status: 000",
	}
}

func TestCreateDocumentSuccess(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Status": 0,
			"Data": map[string]interface{}{
				"DocumentID":          987654,
				"DocumentDownloadURL": "https://accounting.example/doc/987654.pdf",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	output, err := client.CreateDocument(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("create document failed: %v", err)
	}
	if output.DocumentID != "987654" {
		t.Fatalf("document id = %q", output.DocumentID)
	}
	if output.ReceiptURL != "https://accounting.example/doc/987654.pdf" {
		t.Fatalf("receipt url = %q", output.ReceiptURL)
	}

	items, ok := captured["Items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("expected one line item, got %v", captured["Items"])
	}
	item := items[0].(map[string]interface{})
	if item["UnitPrice"].(float64) != 65 || item["TotalPrice"].(float64) != 65 {
		t.Fatalf("line item prices = %v / %v, want 65", item["UnitPrice"], item["TotalPrice"])
	}

	payments, ok := captured["Payments"].([]interface{})
	if !ok || len(payments) != 1 {
		t.Fatalf("expected one payment record, got %v", captured["Payments"])
	}
	card := payments[0].(map[string]interface{})["Details_CreditCard"].(map[string]interface{})
	if card["Last4Digits"] != "1234" {
		t.Fatalf("last4 = %v", card["Last4Digits"])
	}
	if card["NumberOfPayments"].(float64) != 2 {
		t.Fatalf("installments = %v", card["NumberOfPayments"])
	}

	credentials := captured["Credentials"].(map[string]interface{})
	if credentials["CompanyID"].(float64) != 12345 {
		t.Fatalf("company id = %v", credentials["CompanyID"])
	}
}

func TestCreateDocumentRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"Status":           1,
			"UserErrorMessage": "invalid credentials",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateDocument(context.Background(), sampleInput())
	if err == nil {
		t.Fatal("expected error for rejected document")
	}
	if raw := RawResponseFromError(err); raw == "" {
		t.Fatal("expected raw response preserved on rejection")
	}
}

func TestCreateDocumentHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"unavailable"}`, http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateDocument(context.Background(), sampleInput())
	if err == nil {
		t.Fatal("expected error for http 502")
	}
	if raw := RawResponseFromError(err); raw == "" {
		t.Fatal("expected raw response preserved on http error")
	}
}

func TestCreateDocumentUnparseableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.CreateDocument(context.Background(), sampleInput())
	if err == nil {
		t.Fatal("expected error for unparseable response")
	}
}
