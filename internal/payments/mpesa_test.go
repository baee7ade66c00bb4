package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestAdapter(serverURL string) *MpesaAdapter {
	a := NewMpesaAdapter("key", "secret", "174379", "passkey", "https://example.com/callback", false)
	a.BaseURL = serverURL
	return a
}

func TestInitiatePush(t *testing.T) {
	var tokenCalls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			atomic.AddInt32(&tokenCalls, 1)
			if r.Header.Get("Authorization") == "" {
				t.Error("oauth request missing basic auth")
			}
			json.NewEncoder(w).Encode(map[string]string{
				"access_token": "test-token",
				"expires_in":   "3599",
			})
		case "/mpesa/stkpush/v1/processrequest":
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("stk push auth = %q, want Bearer test-token", got)
			}
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			if payload["PhoneNumber"] != "254712345678" {
				t.Errorf("PhoneNumber = %v, want 254712345678", payload["PhoneNumber"])
			}
			if payload["TransactionType"] != "CustomerPayBillOnline" {
				t.Errorf("TransactionType = %v", payload["TransactionType"])
			}
			if payload["AccountReference"] != "CR-J4K9Q2" {
				t.Errorf("AccountReference = %v", payload["AccountReference"])
			}
			json.NewEncoder(w).Encode(map[string]string{
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResponseCode":      "0",
				"CustomerMessage":   "Success. Request accepted for processing",
			})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)

	resp, err := adapter.InitiatePush(context.Background(), PushRequest{
		Amount:      1500,
		PhoneNumber: "0712345678",
		Reference:   "CR-J4K9Q2",
		Description: "Booking deposit",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ProviderRef != "ws_CO_191220191020363925" {
		t.Errorf("ProviderRef = %q", resp.ProviderRef)
	}

	// second push reuses the cached token
	if _, err := adapter.InitiatePush(context.Background(), PushRequest{
		Amount: 100, PhoneNumber: "0712345678", Reference: "CR-X", Description: "x",
	}); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
}

func TestInitiatePushRejectsBadInput(t *testing.T) {
	adapter := newTestAdapter("http://unused.invalid")

	if _, err := adapter.InitiatePush(context.Background(), PushRequest{
		Amount: 100, PhoneNumber: "0812345678", Reference: "x",
	}); err == nil {
		t.Error("expected error for non-mobile phone")
	}

	if _, err := adapter.InitiatePush(context.Background(), PushRequest{
		Amount: 0, PhoneNumber: "0712345678", Reference: "x",
	}); err == nil {
		t.Error("expected error for zero amount")
	}
}

func TestInitiatePushProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "t", "expires_in": "3599"})
		default:
			json.NewEncoder(w).Encode(map[string]string{
				"ResponseCode":        "1",
				"ResponseDescription": "Invalid shortcode",
			})
		}
	}))
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	if _, err := adapter.InitiatePush(context.Background(), PushRequest{
		Amount: 100, PhoneNumber: "0712345678", Reference: "x",
	}); err == nil {
		t.Error("expected error when provider rejects the push")
	}
}

func TestVerifyPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "t", "expires_in": "3599"})
		case "/mpesa/stkpushquery/v1/query":
			json.NewEncoder(w).Encode(map[string]string{
				"ResultCode": "0",
				"ResultDesc": "The service request is processed successfully.",
			})
		}
	}))
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	resp, err := adapter.VerifyPayment(context.Background(), "ws_CO_123")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || !resp.Terminal {
		t.Errorf("got success=%v terminal=%v, want both true", resp.Success, resp.Terminal)
	}
}

func TestVerifyPaymentStillProcessing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/v1/generate":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "t", "expires_in": "3599"})
		case "/mpesa/stkpushquery/v1/query":
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"errorCode":    "500.001.1001",
				"errorMessage": "The transaction is being processed",
			})
		}
	}))
	defer srv.Close()

	adapter := newTestAdapter(srv.URL)
	resp, err := adapter.VerifyPayment(context.Background(), "ws_CO_123")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Terminal {
		t.Error("in-flight transaction should not be terminal")
	}
}

func TestParseCallbackSuccess(t *testing.T) {
	body := []byte(`{
	  "Body": {
	    "stkCallback": {
	      "MerchantRequestID": "29115-34620561-1",
	      "CheckoutRequestID": "ws_CO_191220191020363925",
	      "ResultCode": 0,
	      "ResultDesc": "The service request is processed successfully.",
	      "CallbackMetadata": {
	        "Item": [
	          {"Name": "Amount", "Value": 1500.00},
	          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
	          {"Name": "TransactionDate", "Value": 20191219102115},
	          {"Name": "PhoneNumber", "Value": 254712345678}
	        ]
	      }
	    }
	  }
	}`)

	result, err := ParseCallback(body)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if result.ProviderRef != "ws_CO_191220191020363925" {
		t.Errorf("ProviderRef = %q", result.ProviderRef)
	}
	if result.Amount != 1500 {
		t.Errorf("Amount = %d, want 1500", result.Amount)
	}
	if result.ReceiptNo != "NLJ7RT61SV" {
		t.Errorf("ReceiptNo = %q", result.ReceiptNo)
	}
	if result.PhoneNumber != "254712345678" {
		t.Errorf("PhoneNumber = %q", result.PhoneNumber)
	}
}

func TestParseCallbackFailure(t *testing.T) {
	body := []byte(`{
	  "Body": {
	    "stkCallback": {
	      "MerchantRequestID": "29115-34620561-1",
	      "CheckoutRequestID": "ws_CO_191220191020363925",
	      "ResultCode": 1032,
	      "ResultDesc": "Request cancelled by user."
	    }
	  }
	}`)

	result, err := ParseCallback(body)
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Error("cancelled push should not be success")
	}
	if result.ResultCode != 1032 {
		t.Errorf("ResultCode = %d", result.ResultCode)
	}
}

func TestParseCallbackGarbage(t *testing.T) {
	if _, err := ParseCallback([]byte(`{"Body":{}}`)); err == nil {
		t.Error("expected error for callback without CheckoutRequestID")
	}
}
