package render

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// PageInfo is what a preflight learned about the target.
type PageInfo struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
}

// PreflightConfig tunes the reachability check.
type PreflightConfig struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	MaxRetries     int
	RetryWaitMin   time.Duration
	RetryWaitMax   time.Duration
}

// DefaultPreflightConfig returns retry settings suited to a startup check.
func DefaultPreflightConfig() PreflightConfig {
	return PreflightConfig{
		Timeout:      15 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// Preflighter checks that the target answers before a browser is spent on it.
type Preflighter struct {
	client *resty.Client
}

// NewPreflighter builds a resty client on top of a retrying transport.
func NewPreflighter(cfg PreflightConfig) *Preflighter {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	if cfg.AcceptLanguage != "" {
		client.SetHeader("Accept-Language", cfg.AcceptLanguage)
	}

	return &Preflighter{client: client}
}

// Check fetches target once (with transport retries) and extracts its title.
// 4xx and 5xx responses are reported as a PreflightError.
func (p *Preflighter) Check(ctx context.Context, target string) (*PageInfo, error) {
	resp, err := p.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, &PreflightError{URL: target, Err: err}
	}

	info := &PageInfo{
		URL:         target,
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
	}
	if info.StatusCode >= http.StatusBadRequest {
		return info, &PreflightError{URL: target, StatusCode: info.StatusCode}
	}

	if strings.Contains(info.ContentType, "html") {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
		if err == nil {
			info.Title = strings.TrimSpace(doc.Find("head > title").First().Text())
		}
	}
	return info, nil
}
