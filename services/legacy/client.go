// Package legacy talks to the spreadsheet-script HTTP endpoints that predate
// the backend's transaction table. The script is an opaque webhook: we control
// neither its availability nor its error shapes, so responses are parsed
// leniently and callers are expected to tolerate failure.
package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core"
	"github.com/vintech/portal/core/fees"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ fees.LegacyGateway = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL:    conf.LegacySheet.URL,
		httpClient: &http.Client{Timeout: conf.LegacySheet.Timeout},
	}
}

// WriteSnapshot posts the denormalized "latest payment" record to the sheet.
// The script replies with whatever it pleases; any 2xx is success.
func (c *Client) WriteSnapshot(ctx context.Context, snap fees.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	resp, err := c.post(ctx, "/snapshot", body)
	if err != nil {
		return err
	}
	defer drainClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("legacy snapshot: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// FeeHistory reads a roll's pre-migration fee history. A roll the sheet does
// not know yields Exists=false with an empty map, not an error.
func (c *Client) FeeHistory(ctx context.Context, roll string) (fees.LegacyHistory, error) {
	u := c.baseURL + "/history?" + url.Values{"roll": {roll}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fees.LegacyHistory{}, errors.Wrap(err, "building history request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fees.LegacyHistory{}, errors.Wrap(err, "fetching legacy history")
	}
	defer drainClose(resp.Body)

	var payload struct {
		Success bool               `json:"success"`
		Exists  bool               `json:"exists"`
		Fees    map[string]float64 `json:"fees"`
		Error   string             `json:"error"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fees.LegacyHistory{}, errors.Wrap(err, "decoding legacy history")
	}
	if !payload.Success {
		return fees.LegacyHistory{}, errors.Errorf("legacy history: %s", nonEmpty(payload.Error, "script reported failure"))
	}
	if payload.Fees == nil {
		payload.Fees = map[string]float64{}
	}
	return fees.LegacyHistory{Exists: payload.Exists, Fees: payload.Fees}, nil
}

// BranchStatus computes the paid-up standing of a whole branch on the script
// side and returns its rows.
func (c *Client) BranchStatus(ctx context.Context, branchName string) ([]fees.StatusRow, error) {
	body, err := json.Marshal(map[string]string{"branch": branchName})
	if err != nil {
		return nil, errors.Wrap(err, "encoding status request")
	}
	resp, err := c.post(ctx, "/status", body)
	if err != nil {
		return nil, err
	}
	defer drainClose(resp.Body)

	var payload struct {
		Success bool             `json:"success"`
		Data    []fees.StatusRow `json:"data"`
		Error   string           `json:"error"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decoding branch status")
	}
	if !payload.Success {
		return nil, errors.Errorf("legacy status: %s", nonEmpty(payload.Error, "script reported failure"))
	}
	return payload.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "building %s request", path)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	return resp, errors.Wrapf(err, "posting %s", path)
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
