package util

import (
	"net/http"
	"net/url"
)

// ProxyFunc routes requests through explicit proxies. With neither set it
// falls back to HTTP_PROXY, HTTPS_PROXY and NO_PROXY from the environment.
func ProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// NewTransport clones the default transport and applies ProxyFunc
func NewTransport(httpProxy, httpsProxy string) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = ProxyFunc(httpProxy, httpsProxy)
	return transport
}
