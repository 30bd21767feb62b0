package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brensch/snekpilot/autopilot"
)

// WebhookClient posts the raw provider input to an arbitrary endpoint. The
// reply may be plain JSON, prose with embedded JSON, or an HTML page with
// the JSON inside a <pre> or <code> block.
type WebhookClient struct {
	cfg Config
	hc  *http.Client
}

func NewWebhookClient(cfg Config) (*WebhookClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook provider needs a url")
	}
	return &WebhookClient{cfg: cfg, hc: newHTTPClient(cfg)}, nil
}

func (c *WebhookClient) SuggestCommands(ctx context.Context, in autopilot.Input) (autopilot.Batch, error) {
	body, contentType, err := postJSON(ctx, c.hc, c.cfg.URL, in, bearer(c.cfg.Token))
	if err != nil {
		return autopilot.Batch{}, err
	}
	text := string(body)
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		text, err = htmlPayload(body)
		if err != nil {
			return autopilot.Batch{}, err
		}
	}
	return ParseBatch(text)
}

// htmlPayload returns the first pre/code block holding a JSON object, or
// the page's visible text when there is none.
func htmlPayload(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeResponse, err)
	}
	var found string
	doc.Find("pre, code").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if span, ok := ExtractJSON(s.Text()); ok {
			found = span
			return false
		}
		return true
	})
	if found != "" {
		return found, nil
	}
	return doc.Find("body").Text(), nil
}
