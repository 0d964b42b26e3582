package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const cloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// Cloudflare Workers AI backend.
// POST {base}/accounts/{account_id}/ai/run/{model}
// With bearer API token.
type cloudflareBackend struct {
	baseURL   string
	accountID string
	apiToken  string
	model     string
	hc        *http.Client
}

func NewCloudflareBackend(accountID, apiToken, model, baseURL string) Backend {
	if baseURL == "" {
		baseURL = cloudflareBaseURL
	}
	return &cloudflareBackend{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accountID: accountID,
		apiToken:  apiToken,
		model:     model,
		hc:        &http.Client{Timeout: 60 * time.Minute},
	}
}

type cfResp struct {
	Success bool            `json:"success"`
	Errors  []any           `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type cfWhisperResult struct {
	Text string `json:"text"`
}

func (c *cloudflareBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, c.model)
	header := http.Header{"Authorization": {"Bearer " + c.apiToken}}
	body, err := postFile(ctx, c.hc, url, "file", audioPath, header)
	if err != nil {
		return Transcript{}, fmt.Errorf("cloudflare: %w", err)
	}

	var cr cfResp
	if err := json.Unmarshal(body, &cr); err != nil {
		return Transcript{}, fmt.Errorf("cloudflare: %w", err)
	}
	if !cr.Success {
		return Transcript{}, fmt.Errorf("cloudflare response not successful: %v", cr.Errors)
	}
	var wr cfWhisperResult
	if err := json.Unmarshal(cr.Result, &wr); err != nil {
		return Transcript{}, fmt.Errorf("cloudflare unexpected result: %w", err)
	}
	return Transcript{Segments: []Segment{{Text: wr.Text}}}, nil
}
