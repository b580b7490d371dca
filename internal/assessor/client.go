package assessor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Client calls a remote /generate-question and /score-answer deployment.
type Client struct {
	base string
	http *http.Client
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration

	// Optional OAuth2 client_credentials in front of the endpoints.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// HTTPClient overrides the transport (tests). Ignored when TokenURL is set.
	HTTPClient *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	h := cfg.HTTPClient
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		h = cc.Client(context.Background())
	}
	if h == nil {
		h = &http.Client{}
	}
	if cfg.Timeout > 0 {
		c := *h // the caller's client is left as is
		c.Timeout = cfg.Timeout
		h = &c
	}
	return &Client{base: strings.TrimSuffix(cfg.BaseURL, "/"), http: h}
}

func (c *Client) GenerateQuestion(ctx context.Context, req GenerateRequest) (GeneratedQuestion, error) {
	var out GeneratedQuestion
	if err := c.post(ctx, "/generate-question", req, &out); err != nil {
		return GeneratedQuestion{}, err
	}
	return out, nil
}

func (c *Client) ScoreAnswer(ctx context.Context, req ScoreRequest) (ScoredAnswer, error) {
	var out ScoredAnswer
	if err := c.post(ctx, "/score-answer", req, &out); err != nil {
		return ScoredAnswer{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	res, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("assessor %s: %w", path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("assessor %s: read body: %w", path, err)
	}
	if res.StatusCode/100 != 2 {
		se := &StatusError{StatusCode: res.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			se.Message, se.Raw = eb.Error, eb.RawResponse
		} else {
			se.Message = strings.TrimSpace(string(raw))
		}
		return se
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("assessor %s: decode reply: %w", path, err)
	}
	return nil
}
