package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GatewayURL  string
	Terminal    string
	User        string
	Password    string
	GoodMail    string
	ErrorMail   string
	MinPayments int
	MaxPayments int
	HTTPTimeout time.Duration
}

// Client talks to the Pelecard hosted-payment-page API. It only initiates
// transactions; results come back asynchronously through the webhook and
// browser redirect the init payload registers.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.MinPayments <= 0 {
		cfg.MinPayments = 1
	}
	if cfg.MaxPayments <= 0 {
		cfg.MaxPayments = 10
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type InitiateInput struct {
	AmountMinor       int64
	GoodURL           string
	ErrorURL          string
	ServerCallbackURL string
	ParamX            string
}

// Initiate submits the hosted-page init request and returns the URL the
// browser should be redirected to.
func (c *Client) Initiate(ctx context.Context, input *InitiateInput) (string, error) {
	payload := map[string]string{
		"terminal":                   c.cfg.Terminal,
		"user":                       c.cfg.User,
		"password":                   c.cfg.Password,
		"ActionType":                 "J4",
		"Currency":                   "1",
		"FreeTotal":                  "False",
		"ShopNo":                     "001",
		"Total":                      strconv.FormatInt(input.AmountMinor, 10),
		"GoodURL":                    input.GoodURL,
		"ErrorURL":                   input.ErrorURL,
		"ServerSideGoodFeedbackURL":  input.ServerCallbackURL,
		"ServerSideErrorFeedbackURL": input.ServerCallbackURL,
		"NotificationGoodMail":       c.cfg.GoodMail,
		"NotificationErrorMail":      c.cfg.ErrorMail,
		"ParamX":                     input.ParamX,
		"MinPayments":                strconv.Itoa(c.cfg.MinPayments),
		"MaxPayments":                strconv.Itoa(c.cfg.MaxPayments),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("pelecard init failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var result struct {
		URL string `json:"URL"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("pelecard init response unparseable: %w body=%s", err, string(respBody))
	}
	if strings.TrimSpace(result.URL) == "" {
		return "", errors.New("pelecard init rejected: " + string(respBody))
	}

	return result.URL, nil
}

var resultDataListPattern = regexp.MustCompile(`"ResultData"\s*:\s*\[([^\[\]]+?)\]`)

// RepairPayload normalizes the gateway's pseudo-JSON before parsing:
// single quotes become double quotes, and a bracketed list after
// ResultData becomes a brace-delimited object.
func RepairPayload(raw []byte) []byte {
	repaired := strings.ReplaceAll(string(raw), "'", `"`)
	repaired = resultDataListPattern.ReplaceAllString(repaired, `"ResultData":{$1}`)
	return []byte(repaired)
}

// ParseNotification repairs and parses a webhook body into a flat
// string-keyed field map. Fields inside ResultData take precedence over
// top-level fields of the same name.
func ParseNotification(raw []byte) (map[string]string, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(RepairPayload(raw), &body); err != nil {
		return nil, fmt.Errorf("notification unparseable after repair: %w", err)
	}

	fields := make(map[string]string, len(body))
	for key, value := range body {
		if key == "ResultData" {
			continue
		}
		fields[key] = stringify(value)
	}
	if nested, ok := body["ResultData"].(map[string]interface{}); ok {
		for key, value := range nested {
			fields[key] = stringify(value)
		}
	}

	return fields, nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}
