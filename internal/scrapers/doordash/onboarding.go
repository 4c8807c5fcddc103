package doordash

import (
	"context"
	"fmt"
)

// The endpoints below are hit by the app right after a guest is created.
// The backend does not require them to hand out feeds, they only make the
// session look like a fresh install.

const (
	report_client_experiments      = "client.experiments"
	report_client_register_device  = "client.register-device"
	report_client_privacy_consents = "client.privacy-consents"
	report_client_profile          = "client.profile"
	report_client_update_language  = "client.update-language"
)

const segmentWriteKey = "E6UuE4W1vK18KuDgRFO1A87XS89Vuz5j"

var onboardingExperiments = []string{
	"hide_doubledash_postcheckout",
	"android_cx_nd_address_debug_logging",
	"android_cx_store_carousel_redesign_round_1",
	"android_cx_store_cell_redesign_round_3",
}

type experimentsRequest struct {
	Experiments []string `json:"experiments"`
}

func (c *Client) Experiments(ctx context.Context, s Session) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenMain, secFetch: true}).
		SetHeader("Content-Type", jsonContentType).
		SetBody(experimentsRequest{Experiments: onboardingExperiments}).
		Post("/v1/experiments/")
	return c.check(report_client_experiments, res, err)
}

type registerDeviceRequest struct {
	NotificationToken  string `json:"notification_token"`
	DeviceManufacturer string `json:"device_manufacturer"`
	DeviceModel        string `json:"device_model"`
	DeviceName         string `json:"device_name"`
	AppVersion         string `json:"app_version"`
}

func (c *Client) RegisterDevice(ctx context.Context, s Session) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenMain, secFetch: true}).
		SetHeader("Content-Type", jsonContentType).
		SetBody(registerDeviceRequest{
			NotificationToken:  fmt.Sprintf("fake_token_%s", s.Identity.DeviceId),
			DeviceManufacturer: "Google",
			DeviceModel:        "sdk_gphone_x86",
			DeviceName:         "generic_x86_arm",
			AppVersion:         "11",
		}).
		Post("/v1/register_device/")
	return c.check(report_client_register_device, res, err)
}

func (c *Client) PrivacyConsents(ctx context.Context, s Session) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenMain, secFetch: true}).
		SetQueryParam("segment_write_key", segmentWriteKey).
		Get("/v1/user/privacy_consents")
	return c.check(report_client_privacy_consents, res, err)
}

func (c *Client) Profile(ctx context.Context, s Session) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenMain, secFetch: true}).
		Get("/v2/consumers/me")
	return c.check(report_client_profile, res, err)
}

type updateLanguageRequest struct {
	Language string `json:"language"`
}

func (c *Client) UpdateLanguage(ctx context.Context, s Session, language string) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenMain, secFetch: true}).
		SetHeader("Content-Type", jsonContentType).
		SetBody(updateLanguageRequest{Language: language}).
		Patch("/v2/consumers/me")
	return c.check(report_client_update_language, res, err)
}
