package utils

import (
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

type HTTPClientConfig struct {
	Timeout        time.Duration
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	MaxConns       int  // per host, 0 means unlimited
	HighThreadMode bool // larger socket buffers for many page workers
}

// HTTPDoer is satisfied by *HTTPClient and *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient applies the configured user agent and extra headers to every
// request of a gallery download.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	headers   http.Header
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 60 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = ToolUserAgent
	}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if cfg.HighThreadMode {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setSocketOptions(fd)
			})
		}
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		IdleConnTimeout:     cfg.KATimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: max(cfg.MaxConns, 2),
		MaxConnsPerHost:     cfg.MaxConns,
	}
	if proxy := proxyURL(cfg); proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}
	headers := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers.Set(k, v)
	}
	log.Debug().Str("op", "utils/http-client").Dur("timeout", cfg.Timeout).Int("maxConns", cfg.MaxConns).
		Bool("highThread", cfg.HighThreadMode).Bool("proxy", cfg.ProxyURL != "").Msg("http client created")
	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
		headers:   headers,
	}
}

func proxyURL(cfg HTTPClientConfig) *url.URL {
	if cfg.ProxyURL == "" {
		return nil
	}
	proxy, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		log.Warn().Str("op", "utils/http-client").Str("proxy", cfg.ProxyURL).Err(err).Msg("ignoring unparsable proxy URL")
		return nil
	}
	if cfg.ProxyUsername != "" {
		if cfg.ProxyPassword != "" {
			proxy.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
		} else {
			proxy.User = url.User(cfg.ProxyUsername)
		}
	}
	return proxy
}

func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header[k] = v
	}
	return c.client.Do(req)
}
