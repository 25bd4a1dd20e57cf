package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gasroute/internal/opt"
	"gasroute/internal/resilience"
)

// GoogleMatrix calls a Google-style Distance Matrix REST endpoint and maps
// its status codes onto the failure taxonomy.
type GoogleMatrix struct {
	session *http.Client
	baseURL string
	apiKey  string
	mode    string
}

func NewGoogleMatrix(cfg Config) (*GoogleMatrix, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("google provider: api key is empty")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://maps.googleapis.com"
	}
	mode := cfg.Mode
	if mode == "" {
		mode = "driving"
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleMatrix{
		session: &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		mode:    mode,
	}, nil
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
	ErrorMessage string `json:"error_message"`
}

// Matrix fetches the full n x n travel matrix over the waypoint set.
func (g *GoogleMatrix) Matrix(ctx context.Context, points []opt.GeoPoint) (opt.Matrix, error) {
	const op = "google.matrix"
	if len(points) == 0 {
		return opt.Matrix{}, resilience.NewFailure(resilience.KindInvalidRequest, op, errors.New("empty waypoint set"))
	}
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
	}
	joined := strings.Join(coords, "|")
	q := url.Values{}
	q.Set("origins", joined)
	q.Set("destinations", joined)
	q.Set("mode", g.mode)
	q.Set("key", g.apiKey)
	endpoint := g.baseURL + "/maps/api/distancematrix/json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return opt.Matrix{}, resilience.NewFailure(resilience.KindInvalidRequest, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.session.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return opt.Matrix{}, resilience.NewFailure(resilience.KindTimeout, op, err)
		}
		return opt.Matrix{}, resilience.NewFailure(resilience.KindUnknown, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return opt.Matrix{}, httpFailure(op, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return opt.Matrix{}, resilience.NewFailure(resilience.KindUnknown, op, fmt.Errorf("decode response: %w", err))
	}
	return decodeMatrix(op, mr, len(points))
}

func httpFailure(op string, code int, body string) *resilience.Failure {
	err := fmt.Errorf("status %d: %s", code, body)
	switch {
	case code == http.StatusTooManyRequests:
		return resilience.NewFailure(resilience.KindRateLimited, op, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusBadRequest:
		return resilience.NewFailure(resilience.KindInvalidRequest, op, err)
	case code >= 500:
		return resilience.NewFailure(resilience.KindUnknown, op, err)
	default:
		return resilience.NewFailure(resilience.KindUnknown, op, err)
	}
}

// decodeMatrix maps the provider body status onto the taxonomy and checks
// the matrix shape. OVER_QUERY_LIMIT arrives with HTTP 200, so the body
// status matters as much as the HTTP code.
func decodeMatrix(op string, mr matrixResponse, n int) (opt.Matrix, error) {
	switch mr.Status {
	case "OK":
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return opt.Matrix{}, resilience.NewFailure(resilience.KindRateLimited, op, errors.New(mr.ErrorMessage))
	case "REQUEST_DENIED", "INVALID_REQUEST", "MAX_ELEMENTS_EXCEEDED":
		return opt.Matrix{}, resilience.NewFailure(resilience.KindInvalidRequest, op, fmt.Errorf("%s: %s", mr.Status, mr.ErrorMessage))
	default:
		return opt.Matrix{}, resilience.NewFailure(resilience.KindUnknown, op, fmt.Errorf("%s: %s", mr.Status, mr.ErrorMessage))
	}
	if len(mr.Rows) != n {
		return opt.Matrix{}, resilience.NewFailure(resilience.KindUnknown, op, fmt.Errorf("expected %d rows, got %d", n, len(mr.Rows)))
	}
	m := opt.Matrix{DistM: make([][]float64, n), DurSec: make([][]float64, n)}
	for i, row := range mr.Rows {
		if len(row.Elements) != n {
			return opt.Matrix{}, resilience.NewFailure(resilience.KindUnknown, op, fmt.Errorf("row %d: expected %d elements, got %d", i, n, len(row.Elements)))
		}
		m.DistM[i] = make([]float64, n)
		m.DurSec[i] = make([]float64, n)
		for j, el := range row.Elements {
			if i == j {
				continue
			}
			if el.Status != "OK" {
				return opt.Matrix{}, resilience.NewFailure(resilience.KindUnknown, op, fmt.Errorf("element %d,%d: %s", i, j, el.Status))
			}
			m.DistM[i][j] = el.Distance.Value
			m.DurSec[i][j] = el.Duration.Value
		}
	}
	return m, nil
}
