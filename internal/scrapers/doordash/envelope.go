package doordash

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	appVersion       = "15.221.7"
	defaultUserAgent = "DoorDashConsumer/" + appVersion + " (Android 11; Google sdk_gphone_x86)"
)

// screens of the app, they become the sentry transaction of a request
const (
	screenMain              = "MainActivity"
	screenCreateGuest       = "CreateGuestActivity"
	screenAddress           = "AddressActivity"
	screenAutocomplete      = "AddressAutocompleteActivity"
	screenAddressDetails    = "AddressDetailsActivity"
	screenAddAddress        = "AddAddressActivity"
	screenSetDefaultAddress = "SetDefaultAddressActivity"
	screenHomepage          = "PlanEnrollmentActivity"
	screenFacetFeed         = "FacetFeedActivity"
)

var staticHeaders = map[string]string{
	"Accept":                     "application/json",
	"Accept-Language":            "en-US",
	"X-Experience-Id":            "doordash",
	"Client-Version":             "android v" + appVersion + " b15221079",
	"X-Support-Partner-Dashpass": "true",
	"DD-User-Locale":             "en-US",
	"X-BFF-Error-Format":         "v2",
	"Cache-Control":              "no-cache",
	"Pragma":                     "no-cache",
}

var secFetchHeaders = map[string]string{
	"Sec-Fetch-Dest": "empty",
	"Sec-Fetch-Mode": "cors",
	"Sec-Fetch-Site": "same-origin",
}

var homepageFacetHeaders = map[string]string{
	"X-Facets-Feature-Item-Carousel":                  "true",
	"X-Facets-Feature-Backend-Driven-Badges":          "true",
	"X-Facets-Feature-No-Tile":                        "true",
	"X-Facets-Version":                                "4.0.0",
	"X-Facets-Feature-Item-Steppers":                  "true",
	"X-Facets-Feature-Quick-Add-Stepper-Variant":      "true",
	"X-Facets-Feature-Store-Carousel-Redesign-Round-1": "treatmentVariant2",
	"X-Facets-Feature-Store-Cell-Redesign-Round-3":    "treatmentVariant3",
	"X-Gifting-Intent":                                "false",
}

var feedFacetHeaders = map[string]string{
	"X-Facets-Feature-Backend-Driven-Badges":       "true",
	"X-Facets-Feature-Store-Cell-Redesign-Round-3": "treatmentVariant3",
}

// envelope is the set of headers sent along with a single request.
type envelope struct {
	session  Session
	screen   string
	secFetch bool
	extra    map[string]string
}

func (e envelope) headers() map[string]string {
	headers := map[string]string{
		"X-Session-Id":        e.session.Identity.SessionId,
		"X-Device-Id":         e.session.Identity.DeviceId,
		"X-Correlation-Id":    e.session.Identity.CorrelationId,
		"X-Client-Request-Id": e.session.Identity.RequestId,
		"DD-IDs":              e.session.Identity.ddIds(),
	}
	if e.session.Credential != "" {
		headers["Authorization"] = "JWT " + e.session.Credential
	}

	traceId, spanId := newTraceIds()
	headers["Sentry-Trace"] = fmt.Sprintf("%s-%s-1", traceId, spanId)
	headers["Baggage"] = baggage(e.screen)

	if e.secFetch {
		for k, v := range secFetchHeaders {
			headers[k] = v
		}
	}
	for k, v := range e.extra {
		headers[k] = v
	}
	return headers
}

// newTraceIds returns a 32 hex digit trace id and a 16 hex digit span id.
func newTraceIds() (string, string) {
	return dashless(uuid.NewString()), dashless(uuid.NewString())[:16]
}

func baggage(screen string) string {
	return fmt.Sprintf(
		"sentry-environment=production,sentry-release=android-%s,sentry-transaction=%s",
		appVersion,
		screen,
	)
}
