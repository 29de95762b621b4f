// Package twilio is the thin transport adapter: it authenticates inbound
// webhooks and renders the core's prompt instructions as TwiML. No dialogue
// state lives here.
package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"
)

type Config struct {
	AccountSID     string        `split_words:"true" required:"true"`
	AuthToken      string        `split_words:"true" required:"true"`
	GatherAction   string        `split_words:"true" default:"/event"`
	TransferNumber string        `split_words:"true"`
	Timeout        time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	accountSID     string
	authToken      string
	gatherAction   string
	transferNumber string
	timeout        time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	accountSID := strings.TrimSpace(cfg.AccountSID)
	if accountSID == "" {
		return nil, errors.New("twilio account sid is required")
	}
	authToken := strings.TrimSpace(cfg.AuthToken)
	if authToken == "" {
		return nil, errors.New("twilio auth token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	gatherAction := strings.TrimSpace(cfg.GatherAction)
	if gatherAction == "" {
		gatherAction = "/event"
	}

	return &Client{
		accountSID:     accountSID,
		authToken:      authToken,
		gatherAction:   gatherAction,
		transferNumber: strings.TrimSpace(cfg.TransferNumber),
		timeout:        timeout,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// ValidateSignature checks Twilio's X-Twilio-Signature header for a webhook:
// HMAC-SHA1 over the full request URL followed by the POST params
// concatenated key+value in sorted key order, base64 encoded.
func (c *Client) ValidateSignature(requestURL string, params url.Values, signature string) bool {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(requestURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(c.authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
