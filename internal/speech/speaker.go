// Package speech abstracts the voice output service used for queue
// announcements.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Speaker voices a single announcement. The call blocks until playback has
// been handed off (or failed); serialization is the caller's concern.
type Speaker interface {
	Speak(ctx context.Context, text, languageTag string) error
}

// HTTPSpeaker posts announcements to a text-to-speech endpoint.
type HTTPSpeaker struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSpeaker(endpoint string) *HTTPSpeaker {
	return &HTTPSpeaker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type speakRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
	Volume   float64 `json:"volume"`
}

func (s *HTTPSpeaker) Speak(ctx context.Context, text, languageTag string) error {
	body, err := json.Marshal(speakRequest{
		Text:     text,
		Language: languageTag,
		Rate:     0.85,
		Pitch:    1.1,
		Volume:   1.0,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("speak request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("speak request: status %d", resp.StatusCode)
	}
	return nil
}

// LogSpeaker writes announcements to the log. It stands in when no
// text-to-speech endpoint is configured.
type LogSpeaker struct{}

func (LogSpeaker) Speak(ctx context.Context, text, languageTag string) error {
	log.Printf("announce lang=%s text=%q", languageTag, text)
	return nil
}
