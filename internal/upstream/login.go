package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Credentials are a staff member's upstream account.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Authenticator logs in to both upstream services and stores the tokens.
type Authenticator struct {
	TaskURL string
	LMSURL  string
	Tokens  TokenStore
	Client  *http.Client
}

// LoginResult reports which services issued a token.
type LoginResult struct {
	Task bool `json:"jira"`
	LMS  bool `json:"lms"`
}

// Login authenticates against both services in parallel. Tokens are only
// stored when both logins succeed.
func (a *Authenticator) Login(ctx context.Context, cred Credentials) (LoginResult, error) {
	var taskTok, lmsTok string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		taskTok, err = a.post(gctx, ServiceTask, a.TaskURL, map[string]string{
			"email":    cred.Username,
			"password": cred.Password,
		})
		return err
	})
	g.Go(func() error {
		var err error
		lmsTok, err = a.post(gctx, ServiceLMS, a.LMSURL, map[string]string{
			"user_id":  cred.Username,
			"password": cred.Password,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return LoginResult{}, err
	}

	if err := a.Tokens.SaveToken(ctx, ServiceTask, taskTok); err != nil {
		return LoginResult{}, fmt.Errorf("save %s token: %w", ServiceTask, err)
	}
	if err := a.Tokens.SaveToken(ctx, ServiceLMS, lmsTok); err != nil {
		return LoginResult{Task: true}, fmt.Errorf("save %s token: %w", ServiceLMS, err)
	}
	return LoginResult{Task: true, LMS: true}, nil
}

func (a *Authenticator) post(ctx context.Context, service, rawURL string, body map[string]string) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s login: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	hc := a.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s login: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%s login: %w", service, &StatusError{Service: service, Status: resp.StatusCode})
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%s login: decode response: %w", service, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%s login: no access_token in response", service)
	}
	return out.AccessToken, nil
}
