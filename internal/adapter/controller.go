/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/httputil"
)

const (
	// LoginPath authenticates a session with form encoded credentials.
	LoginPath = "/ws.v1/login"
	// ControlClusterStatusPath answers 200 on the cluster master and 401 elsewhere.
	ControlClusterStatusPath = "/ws.v1/control-cluster/status"
	// TransportZonePath lists the transport zones of the cluster.
	TransportZonePath = "/ws.v1/transport-zone"

	// MaxErrorBodyLength bounds the response body kept in an UnexpectedResponseError.
	MaxErrorBodyLength = 1024
	// DefaultExecutionLimit bounds the requests sent for a single operation, logins and redirects included.
	DefaultExecutionLimit = 5

	maxResponseBodyLength = 4 << 20
)

// Endpoint names used to label observed requests.
const (
	LoginEndpoint                = "login"
	ControlClusterStatusEndpoint = "control-cluster-status"
	ListTransportZonesEndpoint   = "transport-zone-list"
	GetTransportZoneEndpoint     = "transport-zone"
)

var (
	// ErrTransport is returned when a request could not be sent or its response could not be read.
	ErrTransport = errors.New("controller transport error")
	// ErrUnauthorized is returned when a controller node answers 401, even after logging in again.
	// A cluster node that is not the master answers 401 to authenticated requests.
	ErrUnauthorized = errors.New("controller answered 401 unauthorized")
	// ErrUnexpectedResponse is returned for any status code other than the expected ones, or an undecodable body.
	ErrUnexpectedResponse = errors.New("unexpected controller response")
	// ErrExecutionLimitReached is returned along with ErrUnexpectedResponse when an operation needed more requests
	// than the execution limit, e.g. because of a redirect loop.
	ErrExecutionLimitReached = errors.New("reached the execution limit of a controller operation")

	errLogin                = errors.New("logging into controller")
	errControlClusterStatus = errors.New("getting control cluster status")
	errListTransportZones   = errors.New("listing transport zones")
	errGetTransportZone     = errors.New("getting transport zone")
	errDecodeResponse       = errors.New("decoding controller response")
	errEmptyHref            = errors.New("transport zone href must not be empty")
	errNilSession           = errors.New("session must not be nil")
	errRedirectLocation     = errors.New("redirect without a usable location header")
)

// ------------------------------------------------------ ERRORS ---------------------------------------------------- //

// UnexpectedResponseError describes a controller response whose status code was not expected.
// It matches ErrUnexpectedResponse with errors.Is.
type UnexpectedResponseError struct {
	Host       string
	Path       string
	StatusCode int
	// ContentType is the Content-Type header of the response.
	ContentType string
	// Body is the beginning of a textual response body, at most MaxErrorBodyLength bytes.
	// It is empty when the response declared a non textual content type.
	Body string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response from controller %s on %s: status code = %d, content = %q",
		e.Host, e.Path, e.StatusCode, e.Body)
}

// Is reports whether target is ErrUnexpectedResponse.
func (e *UnexpectedResponseError) Is(target error) bool {
	return target == ErrUnexpectedResponse //nolint:errorlint
}

// ----------------------------------------------------- SESSION ---------------------------------------------------- //

// Session is an authenticated session with a single controller node.
//
// Its cookies are only ever sent to the host that issued them. Following a redirect moves the session to the new
// host and drops the cookies, so the next request logs in again there.
type Session struct {
	host    string
	creds   types.Credentials
	cookies []*http.Cookie
}

// Host returns the controller node the session currently belongs to.
func (s *Session) Host() string {
	return s.host
}

func (s *Session) redirect(resp *http.Response) error {
	location, err := resp.Location()
	if err != nil {
		return errors.Join(err, errRedirectLocation)
	}

	if location.Host == "" {
		return errRedirectLocation
	}

	if location.Host != s.host {
		s.host = location.Host
		s.cookies = nil
	}

	return nil
}

// --------------------------------------------------- INTERFACES --------------------------------------------------- //

// Controller talks to the REST API of a single controller node at a time.
type Controller interface {
	// Login authenticates against host and returns a session bound to it.
	Login(ctx context.Context, host string, creds types.Credentials) (*Session, error)
	// ControlClusterStatus returns the status of the control cluster as seen by the session's host.
	ControlClusterStatus(ctx context.Context, session *Session) (*types.ControlClusterStatus, error)
	// ListTransportZones lists the transport zones known by the session's host.
	ListTransportZones(ctx context.Context, session *Session) (*types.TransportZoneList, error)
	// GetTransportZone resolves the detail record of the transport zone at href.
	GetTransportZone(ctx context.Context, session *Session, href string) (*types.TransportZone, error)
}

// RequestObserver is notified once per request that received a response.
type RequestObserver interface {
	ObserveRequest(endpoint string, statusCode int, duration time.Duration)
}

// Options configures a Controller.
type Options struct {
	// FollowRedirects moves the session to the host named by the location of a 3xx response and sends the request
	// again there. When false, a 3xx response is an UnexpectedResponseError.
	FollowRedirects bool
	// ExecutionLimit defaults to DefaultExecutionLimit.
	ExecutionLimit int
	// Observer may be nil.
	Observer RequestObserver
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// --------------------------------------------------- CONSTRUCTORS ------------------------------------------------- //

// NewController returns a new Controller sending its requests with httpClient.
//
// httpClient must not follow redirects itself, see httputil.NewClient.
func NewController(httpClient *http.Client, opts Options) Controller {
	if opts.ExecutionLimit <= 0 {
		opts.ExecutionLimit = DefaultExecutionLimit
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &controller{
		client:          httpClient,
		followRedirects: opts.FollowRedirects,
		executionLimit:  opts.ExecutionLimit,
		observer:        opts.Observer,
		log:             opts.Logger,
	}
}

// --------------------------------------------- CONCRETE IMPLEMENTATION -------------------------------------------- //

type controller struct {
	client          *http.Client
	followRedirects bool
	executionLimit  int
	observer        RequestObserver
	log             *slog.Logger
}

// requestFunc builds the request of one attempt, against the current host of the session.
type requestFunc func(ctx context.Context, session *Session) (*http.Request, error)

// operation counts the requests sent on behalf of a single Controller method call.
type operation struct {
	session    *Session
	executions int
}

// --------------------------------------------------- Login -------------------------------------------------------- //

func (c *controller) Login(ctx context.Context, host string, creds types.Credentials) (*Session, error) {
	session := &Session{host: host, creds: creds}

	resp, body, err := c.execute(ctx, &operation{session: session}, loginRequest, LoginEndpoint, 0)
	if err != nil {
		return nil, errors.Join(err, errLogin)
	}

	if err := session.authenticate(resp, body); err != nil {
		return nil, errors.Join(err, errLogin)
	}

	return session, nil
}

// authenticate stores the cookies of a 200 login response.
func (s *Session) authenticate(resp *http.Response, body []byte) error {
	switch {
	case httputil.IsOK(resp.StatusCode):
		s.cookies = resp.Cookies()
		return nil
	case httputil.IsUnauthorized(resp.StatusCode):
		return ErrUnauthorized
	default:
		return newUnexpectedResponseError(s.host, LoginPath, resp, body)
	}
}

func loginRequest(ctx context.Context, session *Session) (*http.Request, error) {
	form := url.Values{}
	form.Set("username", session.creds.Username)
	form.Set("password", session.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hostURL(session.host, LoginPath),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req, nil
}

// ------------------------------------------------ ControlClusterStatus -------------------------------------------- //

func (c *controller) ControlClusterStatus(
	ctx context.Context,
	session *Session,
) (*types.ControlClusterStatus, error) {
	out := new(types.ControlClusterStatus)
	if err := c.get(ctx, session, ControlClusterStatusPath, ControlClusterStatusEndpoint, out); err != nil {
		return nil, errors.Join(err, errControlClusterStatus)
	}

	return out, nil
}

// ------------------------------------------------ ListTransportZones ---------------------------------------------- //

func (c *controller) ListTransportZones(ctx context.Context, session *Session) (*types.TransportZoneList, error) {
	out := new(types.TransportZoneList)
	if err := c.get(ctx, session, TransportZonePath, ListTransportZonesEndpoint, out); err != nil {
		return nil, errors.Join(err, errListTransportZones)
	}

	return out, nil
}

// ------------------------------------------------- GetTransportZone ----------------------------------------------- //

func (c *controller) GetTransportZone(
	ctx context.Context,
	session *Session,
	href string,
) (*types.TransportZone, error) {
	if href == "" {
		return nil, errors.Join(errEmptyHref, ErrUnexpectedResponse, errGetTransportZone)
	}

	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}

	out := new(types.TransportZone)
	if err := c.get(ctx, session, href, GetTransportZoneEndpoint, out); err != nil {
		return nil, errors.Join(err, errGetTransportZone)
	}

	return out, nil
}

// --------------------------------------------------- UTILS -------------------------------------------------------- //

// get sends an authenticated GET request and decodes a 200 response body into out.
func (c *controller) get(ctx context.Context, session *Session, path, endpoint string, out any) error {
	if session == nil {
		return errNilSession
	}

	build := func(ctx context.Context, s *Session) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, hostURL(s.host, path), nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")

		for _, cookie := range s.cookies {
			req.AddCookie(cookie)
		}

		return req, nil
	}

	resp, body, err := c.execute(ctx, &operation{session: session}, build, endpoint, 0)
	if err != nil {
		return err
	}

	switch {
	case httputil.IsOK(resp.StatusCode):
	case httputil.IsUnauthorized(resp.StatusCode):
		return ErrUnauthorized
	default:
		return newUnexpectedResponseError(session.host, path, resp, body)
	}

	if err := json.NewDecoder(bytes.NewReader(body)).Decode(out); err != nil {
		return errors.Join(err, errDecodeResponse, ErrUnexpectedResponse)
	}

	return nil
}

// execute sends the request built by build and returns the final response of the operation.
//
// When redirects are followed, a 3xx response moves the session to the location's host and the request is sent
// again. A 401 answered to a request other than a login is followed by a single new login on the session's current
// host and the request is sent again; a second 401 is returned as is. Every attempt counts against the execution
// limit of the operation.
func (c *controller) execute(
	ctx context.Context,
	op *operation,
	build requestFunc,
	endpoint string,
	previousStatusCode int,
) (*http.Response, []byte, error) {
	if op.executions >= c.executionLimit {
		return nil, nil, errors.Join(
			fmt.Errorf("sent %d requests, last to %s", op.executions, op.session.host),
			ErrExecutionLimitReached,
			ErrUnexpectedResponse,
		)
	}

	op.executions++

	req, err := build(ctx, op.session)
	if err != nil {
		return nil, nil, err
	}

	resp, body, err := c.do(req, endpoint)
	if err != nil {
		return nil, nil, err
	}

	switch statusCode := resp.StatusCode; {
	case httputil.IsRedirect(statusCode) && c.followRedirects:
		if httputil.IsRedirect(previousStatusCode) {
			c.log.WarnContext(ctx, "controller answered two consecutive redirects",
				"host", op.session.host, "path", req.URL.Path)
		}

		from := op.session.host
		if err := op.session.redirect(resp); err != nil {
			return nil, nil, errors.Join(err, newUnexpectedResponseError(from, req.URL.Path, resp, body))
		}

		c.log.DebugContext(ctx, "following controller redirect", "from", from, "to", op.session.host)

		return c.execute(ctx, op, build, endpoint, statusCode)

	case httputil.IsUnauthorized(statusCode) && endpoint != LoginEndpoint &&
		!httputil.IsUnauthorized(previousStatusCode):
		c.log.DebugContext(ctx, "logging into controller again", "host", op.session.host, "path", req.URL.Path)

		loginResp, loginBody, err := c.execute(ctx, op, loginRequest, LoginEndpoint, statusCode)
		if err != nil {
			return nil, nil, errors.Join(err, errLogin)
		}

		if err := op.session.authenticate(loginResp, loginBody); err != nil {
			return nil, nil, errors.Join(err, errLogin)
		}

		return c.execute(ctx, op, build, endpoint, statusCode)
	}

	return resp, body, nil
}

// do sends req and reads the whole response body.
func (c *controller) do(req *http.Request, endpoint string) (*http.Response, []byte, error) {
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, errors.Join(err, ErrTransport)
	}

	defer func() { _ = resp.Body.Close() }()

	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, resp.StatusCode, time.Since(start))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength))
	if err != nil {
		return nil, nil, errors.Join(err, ErrTransport)
	}

	return resp, body, nil
}

func hostURL(host, path string) string {
	return (&url.URL{Scheme: "https", Host: host}).String() + path
}

func newUnexpectedResponseError(host, path string, resp *http.Response, body []byte) *UnexpectedResponseError {
	contentType := resp.Header.Get("Content-Type")

	if !isTextual(contentType) {
		body = nil
	} else if len(body) > MaxErrorBodyLength {
		body = body[:MaxErrorBodyLength]
	}

	return &UnexpectedResponseError{
		Host:        host,
		Path:        path,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        string(body),
	}
}

// isTextual reports whether a body of contentType is worth reporting. A missing content type is assumed textual.
func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/json"
}
