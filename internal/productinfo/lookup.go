// Package productinfo reads product metadata from a shop page's OpenGraph
// tags so new items can be prefilled from a URL.
package productinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxPageBytes = 2 << 20

var (
	ErrInvalidURL = errors.New("invalid product url")
	ErrNotFound   = errors.New("no product information found")
	errPrivate    = errors.New("refusing to connect to a private address")
)

// Product is what a page tells us about the item it sells.
type Product struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	ImageURL string `json:"image_url"`
}

type Config struct {
	Timeout   time.Duration
	UserAgent string
	// AllowPrivate permits loopback and private network targets.
	AllowPrivate bool
}

type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "StockyPocky/1.0 (+product lookup)"
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if !cfg.AllowPrivate {
		dialer.Control = rejectPrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		userAgent:  cfg.UserAgent,
	}
}

func rejectPrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return errPrivate
	}
	return nil
}

// Lookup fetches rawURL and extracts product metadata.
func (c *Client) Lookup(ctx context.Context, rawURL string) (Product, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Product{}, ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Product{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Product{}, fmt.Errorf("fetch product page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Product{}, fmt.Errorf("product page returned %d", resp.StatusCode)
	}

	return Parse(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
}

// Parse extracts metadata from an HTML document served at base.
func Parse(r io.Reader, base *url.URL) (Product, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Product{}, fmt.Errorf("parse product page: %w", err)
	}

	p := Product{URL: base.String()}
	p.Name = firstMeta(doc, "og:title", "twitter:title")
	if p.Name == "" {
		p.Name = strings.TrimSpace(doc.Find("title").First().Text())
	}
	p.Brand = firstMeta(doc, "og:brand", "product:brand")
	if img := firstMeta(doc, "og:image", "og:image:url", "twitter:image"); img != "" {
		if ref, err := url.Parse(img); err == nil {
			p.ImageURL = base.ResolveReference(ref).String()
		}
	}

	if p.Name == "" && p.ImageURL == "" {
		return p, ErrNotFound
	}
	return p, nil
}

// firstMeta returns the content of the first matching meta tag, looking at
// both property= and name= attributes.
func firstMeta(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		for _, attr := range []string{"property", "name"} {
			sel := doc.Find(fmt.Sprintf(`meta[%s="%s"]`, attr, key)).First()
			if content, ok := sel.Attr("content"); ok {
				if content = strings.TrimSpace(content); content != "" {
					return content
				}
			}
		}
	}
	return ""
}
