package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sjsage522/pricewatcher/helpers"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/pkg/errors"
	"sjsage522/pricewatcher/services/cache"
)

// functionCode runs inside the headless browser and returns the rendered
// markup once the offer elements appear or their wait times out.
const functionCode = `module.exports = async ({ page, context }) => {
	await page.setViewport({ width: 1280, height: 800 });
	await page.setUserAgent(context.userAgent);
	if (context.cookies.length > 0) {
		await page.setCookie(...context.cookies);
	}

	try {
		await page.goto(context.url, { waitUntil: 'domcontentloaded', timeout: context.navigationTimeout });
	} catch (e) {
		console.error('Error loading page:', e.message);
	}

	await Promise.all(context.waitSelectors.map((selector) =>
		page.waitForSelector(selector, { timeout: context.selectorTimeout }).catch(() => null)
	));

	return { data: await page.content(), type: 'text/html' };
}`

type browserCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path"`
}

type functionContext struct {
	URL               string          `json:"url"`
	UserAgent         string          `json:"userAgent"`
	Cookies           []browserCookie `json:"cookies"`
	WaitSelectors     []string        `json:"waitSelectors"`
	NavigationTimeout int64           `json:"navigationTimeout"`
	SelectorTimeout   int64           `json:"selectorTimeout"`
}

type functionRequest struct {
	Code    string          `json:"code"`
	Context functionContext `json:"context"`
}

// ChromeSupplier renders product pages in a headless Chrome served by a
// browserless instance and scrapes the rendered markup.
type ChromeSupplier struct {
	BaseSupplier
	ChromeAddr string

	client *http.Client
}

// NewChromeSupplier creates a supplier backed by the browserless /function endpoint
func NewChromeSupplier(chromeAddr string, cacheSvc cache.CacheService, blockTime, timeout time.Duration) *ChromeSupplier {
	s := &ChromeSupplier{
		BaseSupplier: BaseSupplier{
			Name:      "chrome",
			CacheKey:  "chrome_supplier_rate_limited",
			CacheSvc:  cacheSvc,
			BlockTime: blockTime,
			logger:    logger.ForSupplier("chrome"),
		},
		ChromeAddr: strings.TrimSuffix(chromeAddr, "/"),
		client:     &http.Client{Timeout: timeout},
	}
	s.fetch = s.fetchWithChrome
	return s
}

// CheckConnection reports whether the browserless instance answers
func (c *ChromeSupplier) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ChromeAddr, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewNetwork(c.Name, "chrome connection check failed", err)
	}
	resp.Body.Close()
	return nil
}

// fetchWithChrome renders url in the browser and returns its HTML
func (c *ChromeSupplier) fetchWithChrome(ctx context.Context, url string, sellerVerified bool, sort Sort) (io.Reader, error) {
	cookies := make([]browserCookie, 0, 2)
	for _, ck := range Cookies(url, sellerVerified, sort) {
		cookies = append(cookies, browserCookie{Name: ck.Name, Value: ck.Value, Domain: ck.Domain, Path: ck.Path})
	}

	payload, err := json.Marshal(functionRequest{
		Code: functionCode,
		Context: functionContext{
			URL:               url,
			UserAgent:         helpers.RandomUserAgent(),
			Cookies:           cookies,
			WaitSelectors:     waitSelectors,
			NavigationTimeout: 60000,
			SelectorTimeout:   5000,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal function payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ChromeAddr+"/function", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create function request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork(c.Name, "failed to fetch from chrome function", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewRateLimit(c.Name, c.BlockTime)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetwork(c.Name, fmt.Sprintf("chrome function endpoint returned non-OK status: %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chrome function response: %w", err)
	}

	content := extractHTML(bodyBytes)
	if !strings.Contains(content, "<html") && !strings.Contains(content, "<body") {
		return nil, errors.NewParsing(c.Name, fmt.Sprintf("invalid or empty HTML response (received %d bytes)", len(content)), nil)
	}
	return strings.NewReader(content), nil
}

// extractHTML unwraps the markup from a function response. The endpoint
// returns raw HTML when the function sets a type, and JSON otherwise.
func extractHTML(body []byte) string {
	content := string(body)
	if !strings.HasPrefix(strings.TrimSpace(content), "{") {
		return content
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return content
	}

	if data, ok := result["data"].(map[string]interface{}); ok {
		if html, ok := data["content"].(string); ok {
			return html
		}
	}
	for _, key := range []string{"data", "content", "result", "html"} {
		if html, ok := result[key].(string); ok && html != "" {
			return html
		}
	}
	return content
}
