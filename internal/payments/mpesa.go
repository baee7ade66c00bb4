package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// MpesaAdapter drives Safaricom's Daraja STK push API: an OAuth token
// exchange followed by a push request that makes the customer's phone prompt
// for their PIN. The outcome arrives on our callback URL.
type MpesaAdapter struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	IsProduction   bool

	// BaseURL overrides the Safaricom host, used by tests.
	BaseURL string

	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

func NewMpesaAdapter(consumerKey, consumerSecret, shortCode, passkey, callbackURL string, isProd bool) *MpesaAdapter {
	return &MpesaAdapter{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		ShortCode:      shortCode,
		Passkey:        passkey,
		CallbackURL:    callbackURL,
		IsProduction:   isProd,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		now:            time.Now,
	}
}

func (m *MpesaAdapter) baseURL() string {
	if m.BaseURL != "" {
		return m.BaseURL
	}
	if m.IsProduction {
		return "https://api.safaricom.co.ke"
	}
	return "https://sandbox.safaricom.co.ke"
}

// token returns a cached OAuth bearer token, refreshing when less than a
// minute of validity remains.
func (m *MpesaAdapter) token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && m.now().Before(m.tokenExpiry.Add(-time.Minute)) {
		return m.accessToken, nil
	}

	url := m.baseURL() + "/oauth/v1/generate?grant_type=client_credentials"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(m.ConsumerKey + ":" + m.ConsumerSecret))
	httpReq.Header.Set("Authorization", "Basic "+basic)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("mpesa oauth request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mpesa oauth failed: http=%d body=%s", resp.StatusCode, string(raw))
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("mpesa oauth decode: %w body=%s", err, string(raw))
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("mpesa oauth returned empty token: body=%s", string(raw))
	}

	ttl := 3599 * time.Second
	if secs, err := time.ParseDuration(res.ExpiresIn + "s"); err == nil && secs > 0 {
		ttl = secs
	}

	m.accessToken = res.AccessToken
	m.tokenExpiry = m.now().Add(ttl)
	return m.accessToken, nil
}

// password is base64(shortcode + passkey + timestamp), per the Daraja spec.
func (m *MpesaAdapter) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(m.ShortCode + m.Passkey + timestamp))
}

func (m *MpesaAdapter) InitiatePush(ctx context.Context, req PushRequest) (PushResponse, error) {
	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return PushResponse{}, err
	}
	if req.Amount < 1 {
		return PushResponse{}, fmt.Errorf("mpesa amount must be at least 1, got %d", req.Amount)
	}

	bearer, err := m.token(ctx)
	if err != nil {
		return PushResponse{}, err
	}

	timestamp := m.now().Format("20060102150405")
	payload := map[string]any{
		"BusinessShortCode": m.ShortCode,
		"Password":          m.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            req.Amount,
		"PartyA":            phone,
		"PartyB":            m.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       m.CallbackURL,
		"AccountReference":  req.Reference,
		"TransactionDesc":   req.Description,
	}
	body, _ := json.Marshal(payload)

	url := m.baseURL() + "/mpesa/stkpush/v1/processrequest"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return PushResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return PushResponse{}, fmt.Errorf("mpesa stk push request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return PushResponse{}, fmt.Errorf("mpesa stk push failed: http=%d body=%s", resp.StatusCode, string(raw))
	}

	var res struct {
		MerchantRequestID string `json:"MerchantRequestID"`
		CheckoutRequestID string `json:"CheckoutRequestID"`
		ResponseCode      string `json:"ResponseCode"`
		CustomerMessage   string `json:"CustomerMessage"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return PushResponse{}, fmt.Errorf("mpesa stk push decode: %w body=%s", err, string(raw))
	}
	if res.ResponseCode != "0" {
		return PushResponse{}, fmt.Errorf("mpesa stk push rejected: code=%s body=%s", res.ResponseCode, string(raw))
	}

	return PushResponse{
		ProviderRef:     res.CheckoutRequestID,
		CustomerMessage: res.CustomerMessage,
	}, nil
}

// VerifyPayment polls the transaction status when no callback has arrived.
func (m *MpesaAdapter) VerifyPayment(ctx context.Context, providerRef string) (VerifyResponse, error) {
	bearer, err := m.token(ctx)
	if err != nil {
		return VerifyResponse{}, err
	}

	timestamp := m.now().Format("20060102150405")
	payload := map[string]any{
		"BusinessShortCode": m.ShortCode,
		"Password":          m.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": providerRef,
	}
	body, _ := json.Marshal(payload)

	url := m.baseURL() + "/mpesa/stkpushquery/v1/query"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return VerifyResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return VerifyResponse{}, fmt.Errorf("mpesa stk query request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	// Daraja answers 500 with errorCode 500.001.1001 while the push is still
	// being processed, so decode before judging the HTTP status.
	var res struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
		ErrorCode  string `json:"errorCode"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return VerifyResponse{}, fmt.Errorf("mpesa stk query decode: http=%d err=%w body=%s", resp.StatusCode, err, string(raw))
	}

	if res.ErrorCode == "500.001.1001" {
		return VerifyResponse{
			State:    "Processing",
			Terminal: false,
			Raw:      map[string]any{"http_status": resp.StatusCode, "body": json.RawMessage(raw)},
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return VerifyResponse{}, fmt.Errorf("mpesa stk query failed: http=%d body=%s", resp.StatusCode, string(raw))
	}

	return VerifyResponse{
		Success:  res.ResultCode == "0",
		State:    res.ResultDesc,
		Terminal: true,
		Raw:      map[string]any{"http_status": resp.StatusCode, "body": json.RawMessage(raw)},
	}, nil
}

// stkCallback mirrors the JSON Safaricom posts to our callback URL.
type stkCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback normalizes a raw Daraja callback body. ResultCode 0 is the
// only success; the metadata items are absent on failure.
func ParseCallback(body []byte) (CallbackResult, error) {
	var cb stkCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return CallbackResult{}, fmt.Errorf("mpesa callback decode: %w", err)
	}

	sc := cb.Body.StkCallback
	if sc.CheckoutRequestID == "" {
		return CallbackResult{}, fmt.Errorf("mpesa callback missing CheckoutRequestID")
	}

	result := CallbackResult{
		ProviderRef: sc.CheckoutRequestID,
		Success:     sc.ResultCode == 0,
		ResultCode:  sc.ResultCode,
		ResultDesc:  sc.ResultDesc,
	}

	for _, item := range sc.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if f, ok := item.Value.(float64); ok {
				result.Amount = int64(f)
			}
		case "MpesaReceiptNumber":
			if s, ok := item.Value.(string); ok {
				result.ReceiptNo = s
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				result.PhoneNumber = fmt.Sprintf("%.0f", v)
			case string:
				result.PhoneNumber = v
			}
		}
	}
	return result, nil
}
