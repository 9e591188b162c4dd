package util

import (
	"net/http"
	"testing"
)

func TestProxyFunc_Explicit(t *testing.T) {
	proxy := ProxyFunc("http://plain:3128", "http://secure:3128")

	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/a", "http://plain:3128"},
		{"https://example.com/a", "http://secure:3128"},
	}

	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.url, err)
		}
		if got.String() != tt.want {
			t.Errorf("proxy(%s) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestProxyFunc_HTTPOnlyCoversHTTPS(t *testing.T) {
	proxy := ProxyFunc("http://plain:3128", "")

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	got, err := proxy(req)
	if err != nil || got == nil || got.Host != "plain:3128" {
		t.Errorf("Expected plain proxy for https, got %v (err=%v)", got, err)
	}
}

func TestNewTransport(t *testing.T) {
	transport := NewTransport("", "")
	if transport == http.DefaultTransport {
		t.Error("Expected a cloned transport")
	}
	if transport.Proxy == nil {
		t.Error("Expected proxy func to be set")
	}
}
