package functions

import (
	"context"
	"net/http"

	"mastery/internal/domain/lead"
)

// RoadmapEmailClient calls the send-roadmap-email function.
type RoadmapEmailClient struct {
	caller
}

// NewRoadmapEmailClient creates a client for the function at url.
func NewRoadmapEmailClient(url, key string, httpClient *http.Client) *RoadmapEmailClient {
	return &RoadmapEmailClient{caller: newCaller(url, key, httpClient)}
}

type roadmapRequest struct {
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
}

type roadmapResponse struct {
	Success bool   `json:"success"`
	EmailID string `json:"emailId"`
}

// SendRoadmap requests delivery of the roadmap PDF to email.
// PRE: firstName and email are non-empty
// POST: Returns the provider message id or a *ResponseError
func (c *RoadmapEmailClient) SendRoadmap(ctx context.Context, firstName, email string) (string, error) {
	var out roadmapResponse
	if err := c.post(ctx, "send-roadmap-email", roadmapRequest{FirstName: firstName, Email: email}, &out, lead.MsgSendFailed); err != nil {
		return "", err
	}
	return out.EmailID, nil
}
