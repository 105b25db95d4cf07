// Package backend is the gateway to the remote data backend: row-level table
// access under /rest/v1, named procedures under /rest/v1/rpc and the auth
// service under /auth/v1. The backend owns the data; this process holds the
// privileged service key and enforces branch scoping itself.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
)

// ErrNoRow is returned by single-row reads that matched nothing. Lookup
// callers generally treat it as "clear the form", not as a failure.
var ErrNoRow = errors.New("no row found")

// APIError is a non-2xx reply from the backend. The backend's own message is
// preserved verbatim; handlers surface it as-is.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %d %s", e.StatusCode, e.Message)
}

// Filter is one query predicate, rendered as column=op.value. The operators
// in use are eq, like, ilike and or; anything PostgREST-shaped passes through.
type Filter struct {
	Column string
	Op     string
	Value  string
}

func Eq(column, value string) Filter    { return Filter{Column: column, Op: "eq", Value: value} }
func Like(column, value string) Filter  { return Filter{Column: column, Op: "like", Value: value} }
func ILike(column, value string) Filter { return Filter{Column: column, Op: "ilike", Value: value} }

// Or combines predicates disjunctively: Or("a.ilike.%x%", "b.ilike.%x%").
func Or(predicates ...string) Filter {
	v := "("
	for i, p := range predicates {
		if i > 0 {
			v += ","
		}
		v += p
	}
	return Filter{Column: "or", Value: v + ")"}
}

// Query describes one table read.
type Query struct {
	Table   string
	Select  string // defaults to *
	Filters []Filter
	Order   string // e.g. "id.desc"
	Limit   int
	Offset  int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Select == "" {
		v.Set("select", "*")
	} else {
		v.Set("select", q.Select)
	}
	for _, f := range q.Filters {
		if f.Op == "" {
			v.Add(f.Column, f.Value)
		} else {
			v.Add(f.Column, f.Op+"."+f.Value)
		}
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL:    conf.Backend.URL,
		anonKey:    conf.Backend.AnonKey,
		serviceKey: conf.Backend.ServiceKey,
		httpClient: &http.Client{Timeout: conf.Backend.Timeout},
	}
}

// QueryRows runs q and decodes the row set into dest (a pointer to a slice).
func (c *Client) QueryRows(ctx context.Context, q Query, dest interface{}) error {
	u := c.baseURL + "/rest/v1/" + q.Table + "?" + q.values().Encode()
	return c.do(ctx, http.MethodGet, u, nil, nil, dest)
}

// GetRow runs q expecting at most one row; no match is ErrNoRow.
func (c *Client) GetRow(ctx context.Context, q Query, dest interface{}) error {
	q.Limit = 1
	var rows []json.RawMessage
	if err := c.QueryRows(ctx, q, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNoRow
	}
	return errors.Wrap(json.Unmarshal(rows[0], dest), "decoding row")
}

// InsertRows inserts rows into table. When dest is non-nil the inserted
// representation is decoded into it (a pointer to a slice).
func (c *Client) InsertRows(ctx context.Context, table string, rows interface{}, dest interface{}) error {
	u := c.baseURL + "/rest/v1/" + table
	headers := http.Header{}
	if dest != nil {
		headers.Set("Prefer", "return=representation")
	}
	return c.do(ctx, http.MethodPost, u, headers, rows, dest)
}

// UpdateRow patches the rows matched by filters and returns the first updated
// row in dest; no match is ErrNoRow.
func (c *Client) UpdateRow(ctx context.Context, table string, filters []Filter, patch interface{}, dest interface{}) error {
	u := c.baseURL + "/rest/v1/" + table + "?" + Query{Table: table, Filters: filters}.values().Encode()
	headers := http.Header{}
	headers.Set("Prefer", "return=representation")

	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodPatch, u, headers, patch, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNoRow
	}
	if dest == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(rows[0], dest), "decoding row")
}

// DeleteRow deletes the rows matched by filters; no match is ErrNoRow.
func (c *Client) DeleteRow(ctx context.Context, table string, filters []Filter) error {
	u := c.baseURL + "/rest/v1/" + table + "?" + Query{Table: table, Filters: filters}.values().Encode()
	headers := http.Header{}
	headers.Set("Prefer", "return=representation")

	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodDelete, u, headers, nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNoRow
	}
	return nil
}

// CallProcedure invokes a named server-side procedure with params and decodes
// its reply (scalar or row set) into dest.
func (c *Client) CallProcedure(ctx context.Context, name string, params interface{}, dest interface{}) error {
	u := c.baseURL + "/rest/v1/rpc/" + name
	if params == nil {
		params = map[string]interface{}{}
	}
	return c.do(ctx, http.MethodPost, u, nil, params, dest)
}

func (c *Client) do(ctx context.Context, method, u string, headers http.Header, body, dest interface{}) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, vals := range headers {
		for _, val := range vals {
			req.Header.Add(key, val)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, req.URL.Path)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if dest == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(dest), "decoding response")
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = string(bytes.TrimSpace(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
