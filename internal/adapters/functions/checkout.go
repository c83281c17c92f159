package functions

import (
	"context"
	"errors"
	"net/http"

	"mastery/internal/domain/enrollment"
)

// ErrNoCheckoutURL is returned for a 2xx response without a url.
var ErrNoCheckoutURL = errors.New(enrollment.MsgNoCheckoutURL)

// CheckoutClient calls the create-checkout-session function.
type CheckoutClient struct {
	caller
}

// NewCheckoutClient creates a client for the function at url. A nil httpClient uses a
// client with DefaultTimeout.
func NewCheckoutClient(url, key string, httpClient *http.Client) *CheckoutClient {
	return &CheckoutClient{caller: newCaller(url, key, httpClient)}
}

type checkoutRequest struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}

// CreateSession asks the payment provider for a hosted checkout page.
// PRE: userID and email identify a signed-in user with an enrollment
// POST: Returns the checkout URL, a *ResponseError, or ErrNoCheckoutURL
func (c *CheckoutClient) CreateSession(ctx context.Context, userID, email string) (string, error) {
	var out checkoutResponse
	if err := c.post(ctx, "create-checkout-session", checkoutRequest{UserID: userID, UserEmail: email}, &out, enrollment.MsgCheckoutFailed); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", ErrNoCheckoutURL
	}
	return out.URL, nil
}
