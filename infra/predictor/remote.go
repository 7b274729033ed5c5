package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/fleetcast/auth"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/core/prediction"
)

// RemoteConfig configures the HTTP model server client.
type RemoteConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	Auth    auth.Conf     `json:"auth"`
}

// remoteRequest is the body sent to <url>/predict. Each row is
// [year, month, entity_code].
type remoteRequest struct {
	Rows [][3]int `json:"rows"`
}

// remoteResponse carries either joint predictions or one array per target.
type remoteResponse struct {
	Predictions [][2]float64 `json:"predictions"`
	Trips       []float64    `json:"trips"`
	Passengers  []float64    `json:"passengers"`
}

// Remote calls a model server over HTTP. It implements
// prediction.JointPredictor and prediction.Pinger. Transport failures and 5xx
// responses are reported as prediction.BackendUnavailableError.
type Remote struct {
	base   string
	client *http.Client
}

// NewRemote returns a client for cfg. Requests carry an OAuth2 bearer token
// when cfg.Auth is set.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	if cfg.URL == "" {
		return nil, errors.New("remote: url is required")
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Auth.Enabled() {
		client.Transport = auth.NewClientCred(cfg.Auth).Transport(nil)
	}
	return &Remote{base: strings.TrimSuffix(cfg.URL, "/"), client: client}, nil
}

func (r *Remote) unavailable(err error) error {
	return &prediction.BackendUnavailableError{Backend: "remote", Cause: err}
}

// PredictJoint posts rows and decodes one (trips, passengers) pair per row.
func (r *Remote) PredictJoint(ctx context.Context, rows []model.FeatureRow) ([][2]float64, error) {
	body := remoteRequest{Rows: make([][3]int, len(rows))}
	for i, row := range rows {
		body.Rows[i] = [3]int{row.Year, row.Month, row.EntityCode}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/predict", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, r.unavailable(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("model server returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 {
			return nil, r.unavailable(err)
		}
		return nil, err
	}
	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return out.joint(len(rows))
}

func (o remoteResponse) joint(n int) ([][2]float64, error) {
	if o.Predictions != nil {
		if len(o.Predictions) != n {
			return nil, fmt.Errorf("remote: %w: got %d predictions for %d rows", prediction.ErrOutputShape, len(o.Predictions), n)
		}
		return o.Predictions, nil
	}
	if len(o.Trips) != n || len(o.Passengers) != n {
		return nil, fmt.Errorf("remote: %w: got %d trips and %d passengers for %d rows",
			prediction.ErrOutputShape, len(o.Trips), len(o.Passengers), n)
	}
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{o.Trips[i], o.Passengers[i]}
	}
	return out, nil
}

// Ping calls <url>/healthz.
func (r *Remote) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return r.unavailable(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return r.unavailable(fmt.Errorf("health check returned %s", resp.Status))
	}
	return nil
}
