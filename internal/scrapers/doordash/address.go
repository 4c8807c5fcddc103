package doordash

import (
	"context"
	"fmt"
	"strconv"

	"ddfeed/internal/document"
)

const (
	report_client_list_addresses   = "client.list-addresses"
	report_client_autocomplete     = "client.autocomplete"
	report_client_address_details  = "client.address-details"
	report_client_validate_address = "client.validate-address"
	report_client_add_address      = "client.add-address"
	report_client_set_default      = "client.set-default-address"
)

const (
	autocompleteRadius         = "100"
	placeholderConsumerId      = "1125900377027641"
	addressLinkTypeUnspecified = "ADDRESS_LINK_TYPE_UNSPECIFIED"
)

// ListAddresses fetches the saved addresses of the consumer, the app calls
// it before showing the address picker. Only the status matters.
func (c *Client) ListAddresses(ctx context.Context, s Session) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenAddress, secFetch: true}).
		Get("/v2/addresses")
	return c.check(report_client_list_addresses, res, err)
}

// Autocomplete returns the place id of the first suggestion for the query.
func (c *Client) Autocomplete(ctx context.Context, s Session, query string) (string, error) {
	c.tel.ReportDebug(report_client_autocomplete, query)

	res, err := c.request(ctx, envelope{session: s, screen: screenAutocomplete, secFetch: true}).
		SetQueryParam("input", query).
		SetQueryParam("radius", autocompleteRadius).
		Get("/v1/addresses/autocomplete")
	err = c.check(report_client_autocomplete, res, err)
	if err != nil {
		return "", err
	}

	doc, err := c.parse(report_client_autocomplete, res)
	if err != nil {
		return "", err
	}
	suggestions, ok := doc.(document.Sequence)
	if !ok {
		return "", c.malformed(report_client_autocomplete, "body is not a list")
	}
	if len(suggestions) == 0 {
		c.tel.ReportWarning(report_client_autocomplete, ErrNoSuggestions, query)
		return "", fmt.Errorf("%s: %w", report_client_autocomplete, ErrNoSuggestions)
	}
	first, ok := suggestions[0].(*document.Mapping)
	if !ok {
		return "", c.malformed(report_client_autocomplete, "suggestion is not an object")
	}
	placeId, _ := first.String("google_place_id")
	if placeId == "" {
		return "", c.malformed(report_client_autocomplete, "missing google_place_id")
	}
	return placeId, nil
}

// AddressDetails resolves a place id into coordinates.
func (c *Client) AddressDetails(ctx context.Context, s Session, placeId string) (Coordinates, error) {
	res, err := c.request(ctx, envelope{session: s, screen: screenAddressDetails, secFetch: true}).
		SetQueryParam("place_id", placeId).
		Get("/v2/addresses/details")
	err = c.check(report_client_address_details, res, err)
	if err != nil {
		return Coordinates{}, err
	}

	body, err := c.parseMapping(report_client_address_details, res)
	if err != nil {
		return Coordinates{}, err
	}
	lat, latOk := number(body, "lat")
	lng, lngOk := number(body, "lng")
	if !latOk || !lngOk {
		return Coordinates{}, c.malformed(report_client_address_details, "lat and lng must both be numbers")
	}
	return Coordinates{Lat: lat, Lng: lng}, nil
}

type validateAddressRequest struct {
	ConsumerId    string `json:"consumer_id"`
	AddressId     string `json:"address_id"`
	CartId        string `json:"cart_id"`
	GooglePlaceId string `json:"google_place_id"`
}

func (c *Client) ValidateAddress(ctx context.Context, s Session, placeId string) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenAddress, secFetch: true}).
		SetHeader("Content-Type", jsonContentType).
		SetBody(validateAddressRequest{
			ConsumerId:    placeholderConsumerId,
			GooglePlaceId: placeId,
		}).
		Post("/v2/addresses/validate")
	return c.check(report_client_validate_address, res, err)
}

type dropoffPreference struct {
	OptionId     string `json:"option_id"`
	Instructions string `json:"instructions"`
	IsDefault    bool   `json:"is_default"`
}

type addAddressRequest struct {
	Subpremise         string              `json:"subpremise"`
	DasherInstructions string              `json:"dasher_instructions"`
	ValidateAddress    bool                `json:"validate_address"`
	DropoffPreferences []dropoffPreference `json:"dropoff_preferences"`
	GooglePlaceId      string              `json:"google_place_id"`
	AddressLinkType    string              `json:"address_link_type"`
}

// AddAddress registers the place on the consumer profile and returns the id
// the backend assigned to it.
func (c *Client) AddAddress(ctx context.Context, s Session, placeId string) (string, error) {
	res, err := c.request(ctx, envelope{session: s, screen: screenAddAddress, secFetch: true}).
		SetHeader("Content-Type", jsonContentType).
		SetBody(addAddressRequest{
			DropoffPreferences: []dropoffPreference{
				{OptionId: "1"},
				{OptionId: "2", IsDefault: true},
			},
			GooglePlaceId:   placeId,
			AddressLinkType: addressLinkTypeUnspecified,
		}).
		Post("/v1/consumer_profile/address/")
	err = c.check(report_client_add_address, res, err)
	if err != nil {
		return "", err
	}

	body, err := c.parseMapping(report_client_add_address, res)
	if err != nil {
		return "", err
	}
	value, ok := body.Get("id")
	if !ok {
		return "", c.malformed(report_client_add_address, "missing id")
	}
	id, ok := document.Scalar(value)
	if !ok || id == "" {
		return "", c.malformed(report_client_add_address, "id is not a string or number")
	}
	return id, nil
}

// SetDefaultAddress marks the address as the default one of the consumer.
// A 404 usually means the address already is the default.
func (c *Client) SetDefaultAddress(ctx context.Context, s Session, addressId string) error {
	res, err := c.request(ctx, envelope{session: s, screen: screenSetDefaultAddress, secFetch: true}).
		SetPathParam("addressId", addressId).
		Patch("/v1/consumer_profile/address/{addressId}/set_default")
	return c.check(report_client_set_default, res, err)
}

func number(m *document.Mapping, key string) (float64, bool) {
	value, ok := m.Get(key)
	if !ok {
		return 0, false
	}
	leaf, ok := value.(document.Leaf)
	if !ok {
		return 0, false
	}
	return leaf.Float()
}

func formatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
