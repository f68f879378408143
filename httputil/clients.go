package httputil

import (
	"net/http"
	"net/url"
	"time"

	"stays_observer/config"
)

type Clients struct {
	Upstream *http.Client // Stays API, optionally proxied
	Backup   *http.Client // object storage uploads
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyCfg != nil && proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Clients{
		Upstream: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Backup: &http.Client{Timeout: 60 * time.Second},
	}
}
