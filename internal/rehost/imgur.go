package rehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"time"
)

const DefaultImgurEndpoint = "https://api.imgur.com/3/image"

type ImgurConfig struct {
	ClientID string
	Endpoint string
	Timeout  time.Duration
}

// Imgur uploads anonymous images through the Imgur API.
type Imgur struct {
	httpClient *http.Client
	clientID   string
	endpoint   string
}

func NewImgur(cfg ImgurConfig) *Imgur {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultImgurEndpoint
	}
	return &Imgur{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		clientID:   cfg.ClientID,
		endpoint:   cfg.Endpoint,
	}
}

type imgurResponse struct {
	Data struct {
		Link  string `json:"link"`
		Error any    `json:"error"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

func (i *Imgur) Upload(ctx context.Context, image []byte, name string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", path.Base(name))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := form.WriteField("type", "file"); err != nil {
		return "", fmt.Errorf("write form field: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+i.clientID)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var out imgurResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success || out.Data.Link == "" {
		return "", fmt.Errorf("imgur rejected upload: status %d: %v", out.Status, out.Data.Error)
	}

	return out.Data.Link, nil
}
