package fetchkit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/users/123" {
			t.Errorf("expected /users/123, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"name": "Alice"})
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	resp, err := c.Get(context.Background(), "/users/123", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "Alice") {
		t.Errorf("body = %s, want it to contain Alice", resp.Body)
	}
	if resp.Config == nil || resp.Config.Endpoint != "/users/123" {
		t.Error("response does not carry the request config")
	}
}

func TestClient_Post_EncodesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Bob" {
			t.Errorf("body name = %q, want Bob", body["name"])
		}
		w.WriteHeader(201)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	resp, err := c.Post(context.Background(), "/users", JSON{Value: map[string]string{"name": "Bob"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
}

func TestClient_HeaderMergePrecedence(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := newTestClient(t, Config{
		BaseURL: srv.URL,
		Headers: map[string]string{"X-A": "default", "X-Tenant": "acme"},
	})
	_, err := c.Get(context.Background(), "/", &Options{
		Headers: map[string]string{"X-A": "call", "X-B": "3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Auto content-type is the lowest layer, call headers the highest.
	if got.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want injected application/json", got.Get("Content-Type"))
	}
	if got.Get("X-A") != "call" {
		t.Errorf("X-A = %q, want call-specific value to win", got.Get("X-A"))
	}
	if got.Get("X-B") != "3" {
		t.Errorf("X-B = %q, want 3", got.Get("X-B"))
	}
	if got.Get("X-Tenant") != "acme" {
		t.Errorf("X-Tenant = %q, want default to survive", got.Get("X-Tenant"))
	}
	if got.Get("User-Agent") != "fetchkit/"+Version {
		t.Errorf("User-Agent = %q, want default %q", got.Get("User-Agent"), "fetchkit/"+Version)
	}
}

func TestClient_FormBody_NoInjectedContentType(t *testing.T) {
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
	}))
	defer srv.Close()

	// Even an explicit JSON default must not override the boundary type.
	c := newTestClient(t, Config{
		BaseURL: srv.URL,
		Headers: map[string]string{"X-Client": "fetchkit"},
	})
	form := &FormBody{Fields: map[string]string{"name": "alice"}}
	_, err := c.Post(context.Background(), "/upload", form, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(gotCT, "multipart/form-data; boundary=") {
		t.Errorf("content type = %q, want multipart/form-data with boundary", gotCT)
	}
}

func TestClient_QueryParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("page = %q, want 2", r.URL.Query().Get("page"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Get(context.Background(), "/items", &Options{Query: map[string]string{"page": "2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Timeout_ClassifiedAsAborted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Get(context.Background(), "/slow", &Options{Timeout: 50 * time.Millisecond})
	if !IsAborted(err) {
		t.Fatalf("expected aborted error, got %v", err)
	}
	var ce *Error
	errors.As(err, &ce)
	if !strings.Contains(ce.Message, "50ms") {
		t.Errorf("abort message = %q, want it to include the configured timeout", ce.Message)
	}
}

func TestClient_CallerCancel_IsNetworkNotAborted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Get(ctx, "/slow", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if IsAborted(err) {
		t.Error("caller-driven cancellation must not be classified as a timeout abort")
	}
	if !IsNetwork(err) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestClient_Stream_NotSubjectToTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(200)
		w.(http.Flusher).Flush()
		time.Sleep(300 * time.Millisecond)
		io.WriteString(w, "data: late\n\n")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	resp, err := c.DoStream(context.Background(), "/events", nil)
	if err != nil {
		t.Fatalf("streaming call failed under a timeout that must not apply: %v", err)
	}
	defer resp.Stream.Close()

	body, err := io.ReadAll(resp.Stream)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.Contains(string(body), "late") {
		t.Errorf("stream body = %q, want the late event", body)
	}
}

func TestClient_Stream_ClosedAfterResponseInterceptorRejection(t *testing.T) {
	disconnected := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(200)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(disconnected)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	c.Interceptors.Response.Use(func(resp *Response) (*Response, error) {
		return nil, errors.New("rejected")
	}, nil)

	_, err := c.DoStream(context.Background(), "/events", nil)
	if !IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}

	// The caller never received the response, so the pipeline must have
	// released the open body.
	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("stream body never closed after response interceptor rejection")
	}
}

func TestClient_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	resp, err := c.Delete(context.Background(), "/users/1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Body != nil {
		t.Errorf("204 body = %v, want nil", resp.Body)
	}
}

func TestClient_BadResponse_MessageFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		io.WriteString(w, `{"message":"not found"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Get(context.Background(), "/missing", nil)
	if !IsBadResponse(err) {
		t.Fatalf("expected bad response error, got %v", err)
	}
	var ce *Error
	errors.As(err, &ce)
	if ce.Message != "not found" {
		t.Errorf("message = %q, want %q", ce.Message, "not found")
	}
	if ce.StatusCode != 404 {
		t.Errorf("status = %d, want 404", ce.StatusCode)
	}
	if ce.Response == nil || ce.Config == nil {
		t.Error("bad response error should carry the response and config")
	}
}

func TestClient_BadResponse_GenericMessageOnUnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		io.WriteString(w, "<html>not json</html>")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Get(context.Background(), "/missing", nil)
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected client error, got %v", err)
	}
	if ce.Message != "request failed with status 404" {
		t.Errorf("message = %q, want generic status message", ce.Message)
	}
}

func TestClient_ConnectionFailure_IsNetwork(t *testing.T) {
	c := newTestClient(t, Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Get(context.Background(), "/", nil)
	if !IsNetwork(err) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestClient_RequestInterceptor_TransformsConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Trace") != "on" {
			t.Errorf("X-Trace = %q, want on", r.Header.Get("X-Trace"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	c.Interceptors.Request.Use(func(cfg *RequestConfig) (*RequestConfig, error) {
		cfg.Headers.Set("X-Trace", "on")
		return cfg, nil
	}, nil)

	if _, err := c.Get(context.Background(), "/", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_RequestInterceptor_RunInRegistrationOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Order") != "first,second" {
			t.Errorf("X-Order = %q, want first,second", r.Header.Get("X-Order"))
		}
	}))
	defer srv.Close()

	appendOrder := func(tag string) Fulfilled[*RequestConfig] {
		return func(cfg *RequestConfig) (*RequestConfig, error) {
			v := cfg.Headers.Get("X-Order")
			if v != "" {
				v += ","
			}
			cfg.Headers.Set("X-Order", v+tag)
			return cfg, nil
		}
	}

	c := newTestClient(t, Config{BaseURL: srv.URL})
	c.Interceptors.Request.Use(appendOrder("first"), nil)
	c.Interceptors.Request.Use(appendOrder("second"), nil)

	if _, err := c.Get(context.Background(), "/", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_RequestInterceptor_RejectionBecomesNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	c.Interceptors.Request.Use(func(cfg *RequestConfig) (*RequestConfig, error) {
		return nil, errors.New("rejected by interceptor")
	}, nil)

	_, err := c.Get(context.Background(), "/", nil)
	if !IsNetwork(err) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestClient_ResponseInterceptor_RunsBeforeClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	var seen int
	c.Interceptors.Response.Use(func(resp *Response) (*Response, error) {
		seen = resp.StatusCode
		// An interceptor can repair a response before the pipeline's own
		// error raising runs.
		resp.StatusCode = 200
		return resp, nil
	}, nil)

	resp, err := c.Get(context.Background(), "/", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != 401 {
		t.Errorf("interceptor saw status %d, want 401", seen)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status after interceptor = %d, want 200", resp.StatusCode)
	}
}

func TestClient_ResponseInterceptor_RecoveryNotReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	c.Interceptors.Response.Use(func(resp *Response) (*Response, error) {
		return nil, errors.New("transient")
	}, nil)
	c.Interceptors.Response.Use(nil, func(err error) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	})

	resp, err := c.Get(context.Background(), "/", nil)
	if err != nil {
		t.Fatalf("recovered rejection must not surface: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestClient_CredentialsOmit_SuppressesCookies(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
			return
		}
		if _, err := r.Cookie("session"); err == nil {
			t.Error("cookie sent despite omit policy")
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL, Credentials: CredentialsOmit})
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), "/", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestClient_CredentialsSameOrigin_SendsCookiesToBaseHost(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
			return
		}
		if _, err := r.Cookie("session"); err != nil {
			t.Error("cookie not sent to same-origin host")
		}
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), "/", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}
