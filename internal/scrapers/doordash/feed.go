package doordash

import (
	"context"

	"ddfeed/internal/document"
	"ddfeed/internal/extract"
)

const (
	report_client_homepage_feed = "client.homepage-feed"
	report_client_feed          = "client.feed"
)

// HomepageFeed fetches the home page of the app for the given location.
func (c *Client) HomepageFeed(ctx context.Context, s Session, coords Coordinates) (document.Node, error) {
	c.tel.ReportDebug(report_client_homepage_feed, coords.String())

	res, err := c.request(ctx, envelope{
		session:  s,
		screen:   screenHomepage,
		secFetch: true,
		extra:    homepageFacetHeaders,
	}).
		SetQueryParam("lat", formatCoordinate(coords.Lat)).
		SetQueryParam("lng", formatCoordinate(coords.Lng)).
		Get("/v3/feed/homepage")
	err = c.check(report_client_homepage_feed, res, err)
	if err != nil {
		return nil, err
	}
	return c.parse(report_client_homepage_feed, res)
}

// Feed fetches the content segment a section token points at.
func (c *Client) Feed(ctx context.Context, s Session, coords Coordinates, token extract.SectionToken) (document.Node, error) {
	c.tel.ReportDebug(report_client_feed, coords.String(), len(token))

	res, err := c.request(ctx, envelope{
		session:  s,
		screen:   screenFacetFeed,
		secFetch: true,
		extra:    feedFacetHeaders,
	}).
		SetQueryParam("lat", formatCoordinate(coords.Lat)).
		SetQueryParam("lng", formatCoordinate(coords.Lng)).
		SetQueryParam("id", string(token)).
		Get("/v2/feed/")
	err = c.check(report_client_feed, res, err)
	if err != nil {
		return nil, err
	}
	return c.parse(report_client_feed, res)
}
