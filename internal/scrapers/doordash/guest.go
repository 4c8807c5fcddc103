package doordash

import (
	"context"
	"fmt"
	"strings"

	"ddfeed/internal/document"

	"github.com/mazen160/go-random"
)

const (
	report_client_health_check = "client.health-check"
	report_client_create_guest = "client.create-guest"
)

// HealthCheck probes the backend. A 403 is retried once without the
// Sec-Fetch-* headers, which some edges reject for mobile clients.
func (c *Client) HealthCheck(ctx context.Context, s Session) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenMain, secFetch: true}).
		Get("/status_ok")
	err = c.check(report_client_health_check, res, err)
	if !IsForbidden(err) {
		return err
	}

	c.tel.ReportWarning(report_client_health_check, "forbidden, retrying without sec-fetch headers")
	res, err = c.request(ctx, envelope{session: s, screen: screenMain}).
		Get("/status_ok")
	return c.check(report_client_health_check, res, err)
}

type createGuestRequest struct {
	Password string `json:"password"`
}

// guestPassword satisfies the backend's password rules: it needs an upper
// case letter, a digit and a symbol.
func guestPassword() (string, error) {
	prefix, err := random.String(8)
	if err != nil {
		return "", err
	}
	return prefix + "A1!", nil
}

// CreateGuest creates a guest consumer and returns its credential.
func (c *Client) CreateGuest(ctx context.Context, s Session) (string, error) {
	password, err := guestPassword()
	if err != nil {
		c.tel.ReportBroken(report_client_create_guest, fmt.Errorf("generate password: %w", err))
		return "", err
	}

	res, err := c.request(ctx, envelope{session: s, screen: screenCreateGuest, secFetch: true}).
		SetHeader("Content-Type", jsonContentType).
		SetBody(createGuestRequest{Password: password}).
		Post("/v1/consumer_profile/create_full_guest")
	err = c.check(report_client_create_guest, res, err)
	if err != nil {
		return "", err
	}

	body, err := c.parseMapping(report_client_create_guest, res)
	if err != nil {
		return "", err
	}
	token, ok := guestToken(body)
	if !ok {
		return "", c.malformed(report_client_create_guest, fmt.Sprintf(
			"missing auth_token.token, got keys %v", body.Keys(),
		))
	}
	return token, nil
}

// guestToken reads `auth_token.token`, older responses carry the token at
// the top level instead.
func guestToken(body *document.Mapping) (string, bool) {
	if authToken, ok := body.Mapping("auth_token"); ok {
		token, _ := authToken.String("token")
		if strings.TrimSpace(token) != "" {
			return token, true
		}
	}
	token, _ := body.String("token")
	if strings.TrimSpace(token) != "" {
		return token, true
	}
	return "", false
}
