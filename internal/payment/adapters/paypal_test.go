package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newPayPalServer(t *testing.T, tokenCalls *int32, expiresIn int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "A21AA", "expires_in": expiresIn})
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A21AA" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"COMPLETED","links":[{"href":"https://self","rel":"self"},{"href":"https://approve","rel":"approve"}],"purchase_units":[{"amount":{"currency_code":"MXN","value":"100.00"}}]}`))
	})
	mux.HandleFunc("/v1/notifications/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		var req PayPalVerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status := "FAILURE"
		if req.WebhookID == "WH-ID" && req.TransmissionSig == "good" {
			status = "SUCCESS"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"verification_status": status})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPayPalAccessTokenIsCached(t *testing.T) {
	var calls int32
	srv := newPayPalServer(t, &calls, 3600)
	pp := NewPayPal(PayPalConfig{ClientID: "client", ClientSecret: "secret", BaseURL: srv.URL}, srv.Client())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pp.AccessToken(context.Background()); err != nil {
				t.Errorf("access token: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, err := pp.AccessToken(context.Background()); err != nil {
		t.Fatalf("access token: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single token request, got %d", got)
	}
}

func TestPayPalShortLivedTokenIsNotCached(t *testing.T) {
	var calls int32
	srv := newPayPalServer(t, &calls, 30)
	pp := NewPayPal(PayPalConfig{ClientID: "client", ClientSecret: "secret", BaseURL: srv.URL}, srv.Client())

	for i := 0; i < 2; i++ {
		if _, err := pp.AccessToken(context.Background()); err != nil {
			t.Fatalf("access token: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected token to be refetched, got %d calls", got)
	}
}

func TestPayPalTokenFetchSurvivesCanceledCaller(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "A21AA", "expires_in": 3600})
	}))
	t.Cleanup(srv.Close)
	pp := NewPayPal(PayPalConfig{ClientID: "client", ClientSecret: "secret", BaseURL: srv.URL}, srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := pp.AccessToken(ctx)
		done <- err
	}()

	<-started
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled caller, got %v", err)
	}
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := pp.tokens.Get(pp.tokenKey()); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("shared token fetch did not complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	token, err := pp.AccessToken(context.Background())
	if err != nil || token != "A21AA" {
		t.Fatalf("expected cached token, got %q err=%v", token, err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single token request, got %d", got)
	}
}

func TestPayPalOAuthFailure(t *testing.T) {
	var calls int32
	srv := newPayPalServer(t, &calls, 3600)
	pp := NewPayPal(PayPalConfig{ClientID: "client", ClientSecret: "wrong", BaseURL: srv.URL}, srv.Client())

	_, err := pp.AccessToken(context.Background())
	if !errors.Is(err, ErrOAuthFailed) {
		t.Fatalf("expected ErrOAuthFailed, got %v", err)
	}
}

func TestPayPalGetOrder(t *testing.T) {
	var calls int32
	srv := newPayPalServer(t, &calls, 3600)
	pp := NewPayPal(PayPalConfig{ClientID: "client", ClientSecret: "secret", BaseURL: srv.URL}, srv.Client())

	order, err := pp.GetOrder(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.ApprovalLink() != "https://approve" {
		t.Fatalf("unexpected approval link %q", order.ApprovalLink())
	}
	amount, ok := order.Amount()
	if !ok || !amount.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("unexpected amount %s ok=%v", amount, ok)
	}
}

func TestPayPalVerifyWebhookSignature(t *testing.T) {
	var calls int32
	srv := newPayPalServer(t, &calls, 3600)
	pp := NewPayPal(PayPalConfig{ClientID: "client", ClientSecret: "secret", BaseURL: srv.URL}, srv.Client())

	status, err := pp.VerifyWebhookSignature(context.Background(), PayPalVerifyRequest{
		WebhookID:       "WH-ID",
		TransmissionSig: "good",
		WebhookEvent:    json.RawMessage(`{"id":"WH-EVT"}`),
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if status != "SUCCESS" {
		t.Fatalf("expected SUCCESS, got %q", status)
	}
}

func TestAPIErrorOnNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}))
	defer srv.Close()

	mp := NewMercadoPago(MercadoPagoConfig{AccessToken: "tok", BaseURL: srv.URL}, srv.Client())
	_, err := mp.GetPayment(context.Background(), "555")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", apiErr.StatusCode)
	}
}
