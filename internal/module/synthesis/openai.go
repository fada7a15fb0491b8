package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// OpenAIConfig holds OpenAI client configuration.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAIClient implements Synthesizer against the OpenAI images edits API.
type OpenAIClient struct {
	config *OpenAIConfig
	client *http.Client
}

// NewOpenAIClient creates a new OpenAI synthesis client.
func NewOpenAIClient(cfg *OpenAIConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// openAIImageResponse represents an images edit response.
type openAIImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		B64JSON string `json:"b64_json,omitempty"`
		URL     string `json:"url,omitempty"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// moderation codes the API uses when it refuses a request.
var openAIBlockedCodes = map[string]bool{
	"moderation_blocked":       true,
	"content_policy_violation": true,
}

// Synthesize sends the image and instruction to the images edits endpoint.
func (c *OpenAIClient) Synthesize(ctx context.Context, req *Request) (*Image, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	ext := "png"
	if req.MimeType == "image/jpeg" {
		ext = "jpg"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="room.%s"`, ext))
	header.Set("Content-Type", req.MimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(req.ImageData); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	if err := writer.WriteField("prompt", req.Instruction); err != nil {
		return nil, fmt.Errorf("write prompt: %w", err)
	}
	if err := writer.WriteField("model", c.config.Model); err != nil {
		return nil, fmt.Errorf("write model: %w", err)
	}
	if err := writer.WriteField("n", "1"); err != nil {
		return nil, fmt.Errorf("write n: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	url := c.config.BaseURL + "/v1/images/edits"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	var openAIResp openAIImageResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if openAIResp.Error != nil {
		if openAIBlockedCodes[openAIResp.Error.Code] {
			return nil, fmt.Errorf("%w: %s", ErrContentBlocked, openAIResp.Error.Message)
		}
		return nil, fmt.Errorf("openai error: %s", openAIResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	for _, data := range openAIResp.Data {
		if data.B64JSON == "" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(data.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("decode image data: %w", err)
		}
		return &Image{Data: decoded, MimeType: "image/png"}, nil
	}

	return nil, ErrNoImage
}

// Compile-time check
var _ Synthesizer = (*OpenAIClient)(nil)
