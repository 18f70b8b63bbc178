package visibility

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/looplj/visgate/internal/authz"
	"github.com/looplj/visgate/internal/build"
	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/log"
)

const (
	defaultRemoteTimeout    = 2 * time.Second
	defaultRemoteResultPath = "allow"

	maxRemoteResponseSize = 1 << 20
)

type RemoteConfig struct {
	URL     string            `conf:"url" yaml:"url" json:"url"`
	Timeout time.Duration     `conf:"timeout" yaml:"timeout" json:"timeout"`
	Headers map[string]string `conf:"headers" yaml:"headers" json:"headers"`
	// ResultPath is the gjson path of the boolean decision in the response body.
	ResultPath string `conf:"result_path" yaml:"result_path" json:"result_path"`
}

// Remote asks a policy endpoint. The request body is
//
//	{"principal":{"type":"user","subject":"alice","roles":[...]},"item":{...}}
//
// and the decision is read from ResultPath in the response.
type Remote struct {
	client     *http.Client
	url        string
	headers    map[string]string
	resultPath string
}

var _ Checker = (*Remote)(nil)

// NewRemote creates a Remote checker. A nil client gets one with cfg.Timeout.
func NewRemote(cfg RemoteConfig, client *http.Client) (*Remote, error) {
	if cfg.URL == "" {
		return nil, errors.New("visibility: remote url is required")
	}

	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultRemoteTimeout
		}

		client = &http.Client{Timeout: timeout}
	}

	resultPath := cfg.ResultPath
	if resultPath == "" {
		resultPath = defaultRemoteResultPath
	}

	return &Remote{
		client:     client,
		url:        cfg.URL,
		headers:    cfg.Headers,
		resultPath: resultPath,
	}, nil
}

func (r *Remote) CanSee(ctx context.Context, it item.Item) (bool, error) {
	body, err := remoteRequestBody(authz.PrincipalOrAnonymous(ctx), it)
	if err != nil {
		return false, fmt.Errorf("%w: encode request: %w", ErrCheckFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("%w: build request: %w", ErrCheckFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", build.UserAgent())

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: policy request: %w", ErrCheckFailed, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn(ctx, "failed to close policy response body", log.Cause(err))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseSize))
	if err != nil {
		return false, fmt.Errorf("%w: read policy response: %w", ErrCheckFailed, err)
	}

	if log.DebugEnabled(ctx) {
		log.Debug(ctx, "policy response",
			log.String("item_id", it.ID),
			log.Int("status_code", resp.StatusCode),
			log.String("body", string(data)))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, Checkf("policy endpoint returned %s", resp.Status)
	}

	result := gjson.GetBytes(data, r.resultPath)

	switch result.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	default:
		if !result.Exists() {
			return false, Checkf("policy response has no %q", r.resultPath)
		}

		return false, Checkf("policy response %q is %s, not a boolean", r.resultPath, result.Type)
	}
}

func remoteRequestBody(p authz.Principal, it item.Item) ([]byte, error) {
	body := []byte(`{}`)

	fields := []struct {
		path  string
		value any
	}{
		{"principal.type", p.Type.String()},
		{"principal.subject", p.Subject},
		{"principal.roles", p.Roles},
		{"item", it},
	}

	for _, f := range fields {
		var err error

		body, err = sjson.SetBytes(body, f.path, f.value)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", f.path, err)
		}
	}

	return body, nil
}
