package session

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"

	tls2 "github.com/refraction-networking/utls"

	"github.com/use-agent/jobharvest/models"
	"github.com/use-agent/jobharvest/proxy"
)

// HTTPProvider creates sessions that fetch over plain HTTP with a Chrome TLS
// fingerprint (utls). No JS rendering: useful where the board still serves
// the embedded listing payload to non-browser clients, and much cheaper than
// Chrome.
type HTTPProvider struct {
	seq atomic.Int64
}

// NewHTTPProvider builds the TLS-fingerprint session provider.
func NewHTTPProvider() *HTTPProvider {
	return &HTTPProvider{}
}

// NewSession builds a session with its own cookie jar bound to the endpoint.
func (p *HTTPProvider) NewSession(_ context.Context, fp Fingerprint, endpoint *proxy.Endpoint) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	proxyAddr := ""
	if !endpoint.Direct() {
		proxyAddr = endpoint.URL
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, proxyAddr)
		},
	}
	if proxyAddr != "" {
		if proxyURL, perr := url.Parse(proxyAddr); perr == nil &&
			(proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &httpSession{
		id: fmt.Sprintf("http-%d", p.seq.Add(1)),
		fp: fp,
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
	}, nil
}

func (p *HTTPProvider) Close() error { return nil }

type httpSession struct {
	id     string
	fp     Fingerprint
	client *http.Client
}

func (s *httpSession) ID() string               { return s.id }
func (s *httpSession) Fingerprint() Fingerprint { return s.fp }

// Fetch retrieves the URL with browser-shaped headers. Unlike a browser
// fetch the status code is always available, so classification never needs
// the content fallback here.
func (s *httpSession) Fetch(ctx context.Context, target string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.fp.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", s.fp.Locale+",en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Cache-Control", "no-cache")
	if u, perr := url.Parse(target); perr == nil {
		req.Header.Set("Referer", "https://www.google.com/search?q="+url.QueryEscape(u.Hostname()))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewCrawlError(models.ErrCodeNavTimeout, "fetch timed out", err)
		}
		return nil, models.NewCrawlError(models.ErrCodeNavigation, "fetch failed", err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return nil, models.NewCrawlError(models.ErrCodeNavigation, "bad gzip body", gzErr)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, 10*1024*1024)) // 10 MB cap
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeNavigation, "read body", err)
	}

	finalURL := target
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &FetchResult{
		Status:   resp.StatusCode,
		Content:  string(body),
		FinalURL: finalURL,
	}, nil
}

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxyAddr string) (net.Conn, error) {
	var rawConn net.Conn
	var err error

	dialer := &net.Dialer{}

	if proxyAddr != "" {
		proxyURL, parseErr := url.Parse(proxyAddr)
		if parseErr == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			socksConn, socksErr := dialer.DialContext(ctx, "tcp", proxyURL.Host)
			if socksErr != nil {
				return nil, fmt.Errorf("socks5 dial: %w", socksErr)
			}
			rawConn = socksConn
		}
	}

	if rawConn == nil {
		rawConn, err = dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
