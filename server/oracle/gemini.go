package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/go-resty/resty/v2"
)

const generateContentPath = "/v1beta/models/{model}:generateContent"

type GeminiConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// GeminiClient is an Analyzer backed by the Gemini generateContent API.
type GeminiClient struct {
	httpClient *resty.Client
	model      string
	apiKey     string
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func NewGeminiClient(config GeminiConfig) *GeminiClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetRetryCount(config.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil || resp == nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &GeminiClient{httpClient: client, model: config.Model, apiKey: config.APIKey}
}

func (gc *GeminiClient) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	if gc.apiKey == "" {
		return nil, apperrors.Wrap(apperrors.ExtractionFailed, fmt.Errorf("no API key configured"), apperrors.GenericFailureMessage)
	}

	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MimeType: NormalizeMimeType(req.MimeType), Data: base64.StdEncoding.EncodeToString(req.Image)}},
				{Text: BuildPrompt(req.TypeHint)},
			},
		}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	}

	result := generateResponse{}
	failure := apiError{}

	resp, err := gc.httpClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", gc.apiKey).
		SetPathParam("model", gc.model).
		SetBody(body).
		SetResult(&result).
		SetError(&failure).
		Post(generateContentPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ExtractionFailed, err, apperrors.GenericFailureMessage)
	}

	if resp.IsError() {
		logg.Errorf("generateContent returned %v: %v %v", resp.StatusCode(), failure.Error.Status, failure.Error.Message)
		return nil, apperrors.Wrap(apperrors.ExtractionFailed,
			fmt.Errorf("generateContent: status %d: %s", resp.StatusCode(), failure.Error.Message),
			apperrors.GenericFailureMessage)
	}

	text := result.text()
	if text == "" {
		return nil, apperrors.Wrap(apperrors.ExtractionFailed,
			fmt.Errorf("generateContent: empty reply (block reason %q)", result.PromptFeedback.BlockReason),
			apperrors.GenericFailureMessage)
	}

	return DecodeAnalysis(text)
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}

	sb := strings.Builder{}
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return sb.String()
}
