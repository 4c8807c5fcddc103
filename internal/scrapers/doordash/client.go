// client.go contains the http plumbing shared by every endpoint of the
// consumer mobile backend, the endpoints themselves live in the other files.

package doordash

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"ddfeed/internal/components/assert"
	"ddfeed/internal/components/telemetry"
	"ddfeed/internal/document"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://consumer-mobile-bff.doordash.com"

const jsonContentType = "application/json; charset=UTF-8"

type Options struct {
	BaseUrl string
	// Timeout bounds every single request, 30 seconds when zero.
	Timeout time.Duration
	// RequestsPerSecond is the rate limit of the client, 2 when zero.
	RequestsPerSecond float64
	// Retries is the amount of times a request is retried after a transport
	// error or a 5xx response.
	Retries          int
	CloudflareBypass bool
	UserAgent        string
	// Output receives a dump of every http exchange when it is not nil.
	Output telemetry.InstrumentOutput
}

// Client talks to the consumer mobile backend the way the android app does.
// It keeps the cookies of the session it serves so a Client should be used
// by a single flow.
type Client struct {
	BaseUrl *url.URL

	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("doordash_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	parsedBaseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("User-Agent", opts.UserAgent)
	httpClient.SetHeaders(staticHeaders)
	httpClient.SetTimeout(opts.Timeout)

	if opts.Retries > 0 {
		httpClient.SetRetryCount(opts.Retries)
		httpClient.SetRetryWaitTime(500 * time.Millisecond)
		httpClient.SetRetryMaxWaitTime(5 * time.Second)
		httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return res != nil && res.StatusCode() >= 500
		})
	}

	// max burst >= limit just means that no requests will be dropped
	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.Output)

	c := &Client{
		BaseUrl: parsedBaseUrl,
		http:    httpClient,
		tel:     tel,
	}
	return c, nil
}

func (c *Client) request(ctx context.Context, env envelope) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeaders(env.headers())
}

// check classifies the result of a request into nil, a *TransportError or a
// *StatusError.
func (c *Client) check(op string, res *resty.Response, err error) error {
	if err != nil {
		err = &TransportError{Op: op, Err: err}
		c.tel.ReportBroken(op, err)
		return err
	}
	if !res.IsSuccess() {
		c.tel.ReportDebug(op, "status", res.StatusCode())
		return &StatusError{
			Op:     op,
			Status: res.StatusCode(),
			Body:   string(res.Body()),
		}
	}
	return nil
}

func (c *Client) parse(op string, res *resty.Response) (document.Node, error) {
	doc, err := document.Parse(res.Body())
	if err != nil {
		err = &MalformedError{Op: op, Reason: fmt.Sprintf("parse body: %v", err)}
		c.tel.ReportBroken(op, err)
		return nil, err
	}
	return doc, nil
}

func (c *Client) parseMapping(op string, res *resty.Response) (*document.Mapping, error) {
	doc, err := c.parse(op, res)
	if err != nil {
		return nil, err
	}
	m, ok := doc.(*document.Mapping)
	if !ok {
		return nil, c.malformed(op, "body is not an object")
	}
	return m, nil
}

func (c *Client) malformed(op, reason string) error {
	err := &MalformedError{Op: op, Reason: reason}
	c.tel.ReportBroken(op, err)
	return err
}
