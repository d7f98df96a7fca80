package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:    baseURL,
		UserAgent:  "collector",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
		Logger:     zerolog.Nop(),
	}
}

func TestOpen_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "missing base url", opts: Options{UserAgent: "x"}, wantErr: "base URL is required"},
		{name: "missing user agent", opts: Options{BaseURL: "http://localhost"}, wantErr: "user agent is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.opts)
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Open() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSend_GetWithQuery(t *testing.T) {
	var gotUA, gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("x-rate-limit-remaining", "899")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id_str":"12"}`))
	}))
	defer server.Close()

	tr, err := Open(testOptions(server.URL))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tr.Close()

	resp, err := tr.Send(context.Background(), &Request{
		Path:   "/1.1/users/show.json",
		Query:  url.Values{"user_id": []string{"12"}},
		Header: http.Header{"Authorization": []string{"Bearer abc"}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if resp.StatusCode != 200 || string(resp.Body) != `{"id_str":"12"}` {
		t.Errorf("response = %d %q", resp.StatusCode, resp.Body)
	}
	if resp.Header.Get("x-rate-limit-remaining") != "899" {
		t.Errorf("rate limit header not passed through: %v", resp.Header)
	}
	if gotUA != "collector" {
		t.Errorf("User-Agent = %q, want collector", gotUA)
	}
	if gotQuery != "user_id=12" {
		t.Errorf("query = %q, want user_id=12", gotQuery)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", gotAuth)
	}
}

func TestSend_FormBody(t *testing.T) {
	var gotMethod, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr, _ := Open(testOptions(server.URL))
	defer tr.Close()

	_, err := tr.Send(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/oauth2/token",
		Form:   url.Values{"grant_type": []string{"client_credentials"}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotType != FormContentType {
		t.Errorf("Content-Type = %q, want %q", gotType, FormContentType)
	}
	if gotBody != "grant_type=client_credentials" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestSend_StatusCodesAreNotRetried(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr, _ := Open(testOptions(server.URL))
	defer tr.Close()

	resp, err := tr.Send(context.Background(), &Request{Path: "/1.1/users/show.json"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestSend_ConnectionErrorsAreRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	opts := testOptions(baseURL)
	opts.MaxRetries = 2
	tr, _ := Open(opts)
	tr.client.RetryWaitMin = time.Millisecond
	tr.client.RetryWaitMax = time.Millisecond
	defer tr.Close()

	_, err := tr.Send(context.Background(), &Request{Path: "/1.1/users/show.json"})
	if err == nil {
		t.Fatal("Send() error = nil, want connection error")
	}
	if !strings.Contains(err.Error(), "/1.1/users/show.json") {
		t.Errorf("error %q should name the path", err)
	}
}

func TestSend_AfterClose(t *testing.T) {
	tr, _ := Open(testOptions("http://127.0.0.1:1"))
	tr.Close()

	_, err := tr.Send(context.Background(), &Request{Path: "/"})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Send() error = %v, want ErrClosed", err)
	}
}

func TestSend_OAuth1Signing(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.OAuth1 = &OAuth1Credentials{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AccessToken:    "at",
		AccessSecret:   "as",
	}
	tr, _ := Open(opts)
	defer tr.Close()

	if _, err := tr.Send(context.Background(), &Request{Path: "/1.1/users/lookup.json"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if !strings.HasPrefix(gotAuth, "OAuth ") {
		t.Fatalf("Authorization = %q, want OAuth signature", gotAuth)
	}
	for _, want := range []string{`oauth_consumer_key="ck"`, `oauth_token="at"`, "oauth_signature="} {
		if !strings.Contains(gotAuth, want) {
			t.Errorf("Authorization %q missing %s", gotAuth, want)
		}
	}
}

func TestFactory_OpensFreshInstances(t *testing.T) {
	factory := NewFactory(testOptions("http://127.0.0.1:1"))

	a, err := factory(context.Background())
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	b, err := factory(context.Background())
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	if a == b {
		t.Error("factory returned the same transport twice")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := factory(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("factory(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestRequest_Clone(t *testing.T) {
	orig := &Request{Path: "/x", Query: url.Values{"cursor": []string{"-1"}}}
	c := orig.Clone()
	c.Query.Set("cursor", "42")

	if orig.Query.Get("cursor") != "-1" {
		t.Errorf("Clone shares Query with original")
	}
}
