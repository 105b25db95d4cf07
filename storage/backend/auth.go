package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/vintech/portal/core/identity"
)

// Auth wraps the backend's auth service. Sign-in uses the public anon key;
// credential creation uses the privileged service key.
type Auth struct {
	client *Client
}

var _ identity.Authenticator = (*Auth)(nil)

func NewAuth(client *Client) *Auth {
	return &Auth{client: client}
}

type authUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		Name string `json:"name"`
	} `json:"user_metadata"`
}

func (u authUser) principal() identity.Principal {
	return identity.Principal{ID: u.ID, Email: u.Email, Name: u.Metadata.Name}
}

// SignIn exchanges a password for the account's principal.
func (a *Auth) SignIn(ctx context.Context, email, password string) (identity.Principal, error) {
	var resp struct {
		AccessToken string   `json:"access_token"`
		User        authUser `json:"user"`
	}
	err := a.post(ctx, "/auth/v1/token?grant_type=password", a.client.anonKey,
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return identity.Principal{}, err
	}
	return resp.User.principal(), nil
}

// CreateCredential provisions an auth account with a confirmed email.
func (a *Auth) CreateCredential(ctx context.Context, email, password, name string) (identity.Principal, error) {
	var user authUser
	err := a.post(ctx, "/auth/v1/admin/users", a.client.serviceKey, map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": map[string]string{"name": name},
	}, &user)
	if err != nil {
		return identity.Principal{}, err
	}
	return user.principal(), nil
}

func (a *Auth) post(ctx context.Context, path, key string, body, dest interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encoding auth request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.client.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errors.Wrap(err, "building auth request")
	}
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAuthError(resp)
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(dest), "decoding auth response")
}

// decodeAuthError handles the auth service's error shapes, which differ from
// the table API's ({error_description} or {msg} instead of {message}).
func decodeAuthError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var payload struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	_ = json.Unmarshal(raw, &payload)
	switch {
	case payload.ErrorDescription != "":
		apiErr.Message = payload.ErrorDescription
	case payload.Msg != "":
		apiErr.Message = payload.Msg
	case payload.Message != "":
		apiErr.Message = payload.Message
	default:
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
