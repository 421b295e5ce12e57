package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"goserveph/internal/forms"
	"goserveph/pkg/types"

	"github.com/go-playground/form/v4"
)

var encoder = form.NewEncoder()

// Client talks to the portal HTTP API. It implements forms.Submitter so a
// wizard can be submitted over the wire.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends a staff access token as a bearer header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ forms.Submitter = (*Client)(nil)

// Submit posts a completed application as multipart form data. A rejected
// submission returns the result together with a *types.ValidationError.
// Every other failure wraps types.ErrSubmissionFailed, along with the domain
// error the server reported when there is one.
func (c *Client) Submit(ctx context.Context, pt types.PermitType, values forms.Values, uploads []forms.Upload) (*types.SubmitResult, error) {

	body, contentType, err := multipartBody(values, uploads)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/permits/"+url.PathEscape(string(pt))+"/applications", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: server responded %d", types.ErrSubmissionFailed, resp.StatusCode)
	}

	var result = new(types.SubmitResult)
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		if err := json.Unmarshal(data, result); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
		}
		return result, nil
	case http.StatusUnprocessableEntity:
		if err := json.Unmarshal(data, result); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, err)
		}
		return result, &types.ValidationError{Step: result.Step, Fields: result.Errors}
	}

	return nil, fmt.Errorf("%w: %w", types.ErrSubmissionFailed, responseError(resp.StatusCode, data))
}

func multipartBody(values forms.Values, uploads []forms.Upload) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := mw.WriteField(name, values[name]); err != nil {
			return nil, "", err
		}
	}

	for _, u := range uploads {
		if err := writeUpload(mw, u); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func writeUpload(mw *multipart.Writer, u forms.Upload) error {
	r, err := u.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", u.FileName, err)
	}
	defer r.Close()

	fw, err := mw.CreateFormFile(u.Field, u.FileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, r)
	return err
}

func (c *Client) ValidateStep(ctx context.Context, pt types.PermitType, step int, values forms.Values) (*types.StepValidation, error) {
	path := fmt.Sprintf("/api/permits/%s/steps/%d/validate", url.PathEscape(string(pt)), step)

	var out = new(types.StepValidation)
	err := c.postForm(ctx, path, values.Form(), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Applications(ctx context.Context, pt types.PermitType, filter types.ListFilter) (*types.ApplicationList, error) {
	query, err := encoder.Encode(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	var out = new(types.ApplicationList)
	err = c.get(ctx, "/api/permits/"+url.PathEscape(string(pt))+"/applications?"+query.Encode(), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context, pt types.PermitType, filter types.ListFilter) (*types.StatusCounts, error) {
	query, err := encoder.Encode(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter: %w", err)
	}

	var out = new(types.StatusCounts)
	err = c.get(ctx, "/api/permits/"+url.PathEscape(string(pt))+"/summary?"+query.Encode(), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Application(ctx context.Context, id string) (*types.ApplicationDetail, error) {
	var out = new(types.ApplicationDetail)
	err := c.get(ctx, "/api/applications/"+url.PathEscape(id), out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Events(ctx context.Context, id string) ([]*types.ReviewEvent, error) {
	var out []*types.ReviewEvent
	err := c.get(ctx, "/api/applications/"+url.PathEscape(id)+"/events", &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AssignOfficer(ctx context.Context, id, officer string) (*types.Application, error) {
	values, err := encoder.Encode(types.OfficerRequest{AssignedOfficer: officer})
	if err != nil {
		return nil, err
	}

	var out = new(types.Application)
	err = c.postForm(ctx, "/api/applications/"+url.PathEscape(id)+"/officer", values, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Transition(ctx context.Context, id string, status types.ApplicationStatus, comment string) (*types.Application, error) {
	values, err := encoder.Encode(types.TransitionRequest{Status: string(status), Comment: comment})
	if err != nil {
		return nil, err
	}

	var out = new(types.Application)
	err = c.postForm(ctx, "/api/applications/"+url.PathEscape(id)+"/status", values, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetTODAOverride pins the TODA flag; nil clears the override.
func (c *Client) SetTODAOverride(ctx context.Context, id string, override *bool) (*types.TODAStatus, error) {
	req := types.TODAOverrideRequest{Override: "clear"}
	if override != nil {
		req.Override = strconv.FormatBool(*override)
	}

	values, err := encoder.Encode(req)
	if err != nil {
		return nil, err
	}

	var out = new(types.TODAStatus)
	err = c.postForm(ctx, "/api/applications/"+url.PathEscape(id)+"/toda", values, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, values url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError is returned for API failures that do not map onto a domain
// error.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

// responseError turns an error body back into the domain error the server
// mapped it from.
func responseError(status int, data []byte) error {
	var body types.ErrorResponse
	_ = json.Unmarshal(data, &body)

	switch {
	case status == http.StatusNotFound && body.Message == "Unknown permit type.":
		return types.ErrUnknownPermitType
	case status == http.StatusNotFound && body.Message == "Application not found.":
		return types.ErrApplicationNotFound
	case status == http.StatusBadRequest && body.Message == "Invalid status.":
		return types.ErrInvalidStatus
	case status == http.StatusBadRequest && strings.HasPrefix(body.Message, "TODA classification"):
		return types.ErrTODANotApplicable
	}

	return &StatusError{StatusCode: status, Message: body.Message}
}

// IsUnauthorized reports whether err is a rejected staff credential.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}
