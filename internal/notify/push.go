package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/campushive/hivelab/internal/engine"
)

// WebhookPushSender delivers notify/push actions by POSTing one JSON payload
// per recipient to the host platform's push gateway.
type WebhookPushSender struct {
	WebhookURL string
	Client     *http.Client
}

func NewWebhookPushSender(webhookURL string) *WebhookPushSender {
	return &WebhookPushSender{WebhookURL: webhookURL}
}

func (s *WebhookPushSender) SendPush(ctx context.Context, req engine.PushRequest) (engine.SendResult, error) {
	if s.WebhookURL == "" {
		return engine.SendResult{}, fmt.Errorf("push webhook not configured")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	title := Render(req.Title, req.Variables)
	body := Render(req.Body, req.Variables)

	var result engine.SendResult
	for _, userID := range req.To {
		payload, _ := json.Marshal(map[string]string{
			"user_id":       userID,
			"deployment_id": req.DeploymentID,
			"title":         title,
			"body":          body,
			"link":          req.Link,
		})

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", userID, err))
			continue
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: push send: %v", userID, err))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 400 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: push gateway returned %d", userID, resp.StatusCode))
			continue
		}
		result.Sent++
	}
	return result, nil
}
