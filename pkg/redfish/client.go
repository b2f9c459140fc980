// Package redfish drives export/import of server configuration profiles
// against one management controller's Redfish endpoint.
package redfish

import (
	"crypto/tls"
	"net/http"
	"time"

	resty "github.com/go-resty/resty/v2"

	"github.com/goldenfleet/goldenctl/pkg/config"
	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

// Client is the authenticated, retrying request executor for a single
// controller. Embedded firmware HTTP servers drop connections, stall, and
// return transient 5xx freely, so every call runs under a bounded retry
// policy and every attempt dials a fresh connection.
type Client struct {
	endpoint    entity.HostEndpoint
	conn        entity.ConnectionOptions
	restyClient *resty.Client
	session     *entity.Session
}

func NewClient(endpoint entity.HostEndpoint, conn entity.ConnectionOptions) *Client {
	rc := resty.New()
	rc.SetBaseURL(endpoint.BaseURL())
	rc.SetTimeout(conn.Timeout)
	rc.SetRetryCount(conn.Retries)
	rc.SetRetryWaitTime(2 * time.Second)
	rc.SetRetryMaxWaitTime(30 * time.Second)
	rc.SetHeader("Accept", "application/json")
	rc.SetBasicAuth(endpoint.Username, endpoint.Password)
	rc.SetDebug(config.GlobalConfig.GetDebugHTTP())
	// Keep-alives off: controllers leave connections wedged after a
	// failure, so each retry must start from a clean dial.
	rc.SetTransport(&http.Transport{
		DisableKeepAlives: true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !endpoint.VerifySSL, // #nosec G402 -- self-signed controller certs are the norm
			MinVersion:         tls.VersionTLS12,
		},
	})
	rc.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		// 401/403 are excluded: bad credentials never improve with
		// retries and must not burn the budget.
		return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
	})
	return &Client{
		endpoint:    endpoint,
		conn:        conn,
		restyClient: rc,
	}
}

// RestyClient exposes the underlying resty client so tests can attach
// httpmock to it.
func (c *Client) RestyClient() *resty.Client {
	return c.restyClient
}

func (c *Client) Host() string {
	return c.endpoint.IP
}

// Do executes one request under the retry policy and returns the final
// status and body. Auth failures surface as AuthError immediately;
// transient failures that outlive the retry budget surface as
// TransportError carrying the last status/body and the attempt count.
// Other non-2xx statuses are returned to the caller to interpret.
func (c *Client) Do(method, path string, body interface{}) (int, []byte, error) {
	status, payload, _, err := c.DoWithHeaders(method, path, body)
	return status, payload, err
}

// DoWithHeaders is Do plus the response headers, for callers that need
// the task Location of a submitted job.
func (c *Client) DoWithHeaders(method, path string, body interface{}) (int, []byte, http.Header, error) {
	req := c.restyClient.R()
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		return 0, nil, nil, goldenerrors.WrapAndTrace(&goldenerrors.TransportError{
			Host:     c.endpoint.IP,
			Attempts: c.attempts(res),
			Cause:    err,
		})
	}
	status := res.StatusCode()
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return status, res.Body(), res.Header(), goldenerrors.WrapAndTrace(&goldenerrors.AuthError{
			Host:       c.endpoint.IP,
			StatusCode: status,
		})
	case status == http.StatusTooManyRequests || status >= 500:
		return status, res.Body(), res.Header(), goldenerrors.WrapAndTrace(&goldenerrors.TransportError{
			Host:       c.endpoint.IP,
			StatusCode: status,
			Body:       truncate(string(res.Body()), 500),
			Attempts:   c.attempts(res),
		})
	}
	return status, res.Body(), res.Header(), nil
}

func (c *Client) attempts(res *resty.Response) int {
	if res != nil && res.Request != nil && res.Request.Attempt > 0 {
		return res.Request.Attempt
	}
	return c.conn.Retries + 1
}

// Login establishes a Redfish session and switches the client to token
// auth. Controllers too old for session service (404/405 on the session
// endpoint) fall back to basic auth for the life of the operation.
func (c *Client) Login(dialect Dialect) (*entity.Session, error) {
	res, err := c.restyClient.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"UserName": c.endpoint.Username,
			"Password": c.endpoint.Password,
		}).
		Post(dialect.SessionPath())
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.TransportError{
			Host:     c.endpoint.IP,
			Attempts: c.attempts(res),
			Cause:    err,
		})
	}
	status := res.StatusCode()
	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		c.session = &entity.Session{
			Token:    res.Header().Get("X-Auth-Token"),
			Location: res.Header().Get("Location"),
		}
		if c.session.Token != "" {
			c.restyClient.SetHeader("X-Auth-Token", c.session.Token)
		}
		return c.session, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.AuthError{
			Host:       c.endpoint.IP,
			StatusCode: status,
		})
	case status == http.StatusNotFound || status == http.StatusMethodNotAllowed:
		c.session = &entity.Session{Basic: true}
		return c.session, nil
	default:
		return nil, goldenerrors.WrapAndTrace(&goldenerrors.TransportError{
			Host:       c.endpoint.IP,
			StatusCode: status,
			Body:       truncate(string(res.Body()), 500),
			Attempts:   c.attempts(res),
		}, "session create rejected")
	}
}

// Logout tears the session down best-effort; callers ignore the error on
// every exit path.
func (c *Client) Logout() {
	if c.session == nil || c.session.Basic || c.session.Location == "" {
		return
	}
	_, _, _ = c.Do(http.MethodDelete, c.session.Location, nil)
	c.session = nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
