// Package elevenlabs calls the ElevenLabs text-to-speech API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"photo-speech/internal/shared/resilience"
	"photo-speech/internal/speech"
)

const (
	DefaultAPIURL = "https://api.elevenlabs.io/v1/text-to-speech"
	maxErrorBody  = 4 << 10
)

type Config struct {
	APIURL          string
	APIKey          string
	VoiceID         string
	ModelID         string
	Stability       float64
	SimilarityBoost float64
}

type Client struct {
	httpClient *http.Client
	cfg        Config
	exec       *resilience.Executor
}

func New(httpClient *http.Client, cfg Config, exec *resilience.Executor) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Stability == 0 {
		cfg.Stability = 0.5
	}
	if cfg.SimilarityBoost == 0 {
		cfg.SimilarityBoost = 0.75
	}
	return &Client{httpClient: httpClient, cfg: cfg, exec: exec}
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize returns MP3 audio. The voice is fixed by configuration, so the
// request's language and gender are not sent.
func (c *Client) Synthesize(ctx context.Context, req speech.Request) ([]byte, error) {
	req = req.WithDefaults()
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("elevenlabs: empty text")
	}
	if req.AudioEncoding != speech.EncodingMP3 {
		return nil, fmt.Errorf("elevenlabs: unsupported audio encoding %s", req.AudioEncoding)
	}

	body, err := json.Marshal(ttsRequest{
		Text:    req.Text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.SimilarityBoost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: encode request: %w", err)
	}

	var audio []byte
	err = c.exec.Execute(ctx, "elevenlabs.synthesize", func(ctx context.Context) error {
		var callErr error
		audio, callErr = c.synthesize(ctx, body)
		return callErr
	}, resilience.ClassifyHTTP)
	return audio, err
}

func (c *Client) synthesize(ctx context.Context, body []byte) ([]byte, error) {
	endpoint := c.cfg.APIURL + "/" + url.PathEscape(c.cfg.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &resilience.StatusError{Service: "elevenlabs", StatusCode: resp.StatusCode, Body: string(msg)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio")
	}
	return audio, nil
}

var _ speech.Synthesizer = (*Client)(nil)
