package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "https://api-inference.huggingface.co/models"
	DefaultClassifyModel  = "facebook/bart-large-mnli"
	DefaultSummarizeModel = "facebook/bart-large-cnn"
	DefaultSentimentModel = "cardiffnlp/twitter-roberta-base-sentiment-latest"
)

type ClientConfig struct {
	BaseURL        string
	APIToken       string
	ClassifyModel  string
	SummarizeModel string
	SentimentModel string
	Timeout        time.Duration
}

// Client talks to a Hugging Face style inference endpoint and implements all
// three collaborator interfaces.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ClassifyModel == "" {
		cfg.ClassifyModel = DefaultClassifyModel
	}
	if cfg.SummarizeModel == "" {
		cfg.SummarizeModel = DefaultSummarizeModel
	}
	if cfg.SentimentModel == "" {
		cfg.SentimentModel = DefaultSentimentModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) post(ctx context.Context, model string, payload any) ([]byte, error) {
	blob, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+model, bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("inference %s failed status=%d body=%s", model, resp.StatusCode, truncate(string(out), 200))
	}
	return out, nil
}

func (c *Client) ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"candidate_labels": labels,
		},
	}
	out, err := c.post(ctx, c.cfg.ClassifyModel, payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("decode zero-shot response: %w", err)
	}
	if len(resp.Labels) == 0 || len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("malformed zero-shot response: %d labels, %d scores", len(resp.Labels), len(resp.Scores))
	}
	scores := make(map[string]float64, len(resp.Labels))
	for i, label := range resp.Labels {
		scores[label] = resp.Scores[i]
	}
	return scores, nil
}

func (c *Client) SummarizeText(ctx context.Context, text string, maxWords int) (string, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"max_length": maxWords,
			"do_sample":  false,
		},
	}
	out, err := c.post(ctx, c.cfg.SummarizeModel, payload)
	if err != nil {
		return "", err
	}
	var resp []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", fmt.Errorf("decode summarization response: %w", err)
	}
	if len(resp) == 0 || strings.TrimSpace(resp[0].SummaryText) == "" {
		return "", fmt.Errorf("malformed summarization response: empty summary")
	}
	return strings.TrimSpace(resp[0].SummaryText), nil
}

func (c *Client) ScoreSentiment(ctx context.Context, text string) (float64, error) {
	out, err := c.post(ctx, c.cfg.SentimentModel, map[string]any{"inputs": text})
	if err != nil {
		return 0, err
	}
	var resp [][]struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return 0, fmt.Errorf("decode sentiment response: %w", err)
	}
	if len(resp) == 0 || len(resp[0]) == 0 {
		return 0, fmt.Errorf("malformed sentiment response: no scores")
	}
	var positive, negative float64
	for _, s := range resp[0] {
		switch strings.ToLower(s.Label) {
		case "positive", "label_2":
			positive = s.Score
		case "negative", "label_0":
			negative = s.Score
		}
	}
	return positive - negative, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
