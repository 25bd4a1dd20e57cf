package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gasroute/internal/opt"
	"gasroute/internal/resilience"
)

func matrixBody(n int) string {
	rows := ""
	for i := 0; i < n; i++ {
		els := ""
		for j := 0; j < n; j++ {
			if j > 0 {
				els += ","
			}
			els += fmt.Sprintf(`{"status":"OK","distance":{"value":%d},"duration":{"value":%d}}`, (i+j)*100, (i+j)*10)
		}
		if i > 0 {
			rows += ","
		}
		rows += `{"elements":[` + els + `]}`
	}
	return `{"status":"OK","rows":[` + rows + `]}`
}

func newGoogle(t *testing.T, h http.HandlerFunc) *GoogleMatrix {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := NewGoogleMatrix(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new google matrix: %v", err)
	}
	return g
}

func twoPoints() []opt.GeoPoint {
	return []opt.GeoPoint{{Lat: 47.61, Lng: -122.20}, {Lat: 47.62, Lng: -122.21}}
}

func TestGoogleMatrixOK(t *testing.T) {
	var gotPath, gotKey string
	g := newGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		fmt.Fprint(w, matrixBody(2))
	})
	m, err := g.Matrix(context.Background(), twoPoints())
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	if gotPath != "/maps/api/distancematrix/json" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key not sent, got %q", gotKey)
	}
	if len(m.DistM) != 2 || m.DistM[0][1] != 100 || m.DurSec[1][0] != 10 {
		t.Fatalf("unexpected matrix: %+v", m)
	}
	if m.DistM[0][0] != 0 || m.DurSec[1][1] != 0 {
		t.Fatal("diagonal must stay zero")
	}
}

func TestGoogleMatrixOverQueryLimit(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"OVER_QUERY_LIMIT","error_message":"quota"}`)
	})
	_, err := g.Matrix(context.Background(), twoPoints())
	if resilience.KindOf(err) != resilience.KindRateLimited {
		t.Fatalf("kind = %v, want rate_limited", resilience.KindOf(err))
	}
}

func TestGoogleMatrixRequestDenied(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
	})
	_, err := g.Matrix(context.Background(), twoPoints())
	if resilience.KindOf(err) != resilience.KindInvalidRequest {
		t.Fatalf("kind = %v, want invalid_request", resilience.KindOf(err))
	}
}

func TestGoogleMatrixHTTPStatuses(t *testing.T) {
	cases := []struct {
		code int
		want resilience.FailureKind
	}{
		{http.StatusTooManyRequests, resilience.KindRateLimited},
		{http.StatusForbidden, resilience.KindInvalidRequest},
		{http.StatusBadRequest, resilience.KindInvalidRequest},
		{http.StatusInternalServerError, resilience.KindUnknown},
		{http.StatusBadGateway, resilience.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.code), func(t *testing.T) {
			g := newGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.code)
			})
			_, err := g.Matrix(context.Background(), twoPoints())
			if resilience.KindOf(err) != tc.want {
				t.Fatalf("kind = %v, want %v", resilience.KindOf(err), tc.want)
			}
		})
	}
}

func TestGoogleMatrixShapeMismatch(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, matrixBody(3)) // 3x3 for a 2-point request
	})
	if _, err := g.Matrix(context.Background(), twoPoints()); err == nil {
		t.Fatal("shape mismatch must be an error")
	}
}

func TestGoogleMatrixEmptyPoints(t *testing.T) {
	g := newGoogle(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, matrixBody(0))
	})
	_, err := g.Matrix(context.Background(), nil)
	if resilience.KindOf(err) != resilience.KindInvalidRequest {
		t.Fatalf("kind = %v, want invalid_request", resilience.KindOf(err))
	}
}

func TestGoogleRequiresAPIKey(t *testing.T) {
	if _, err := NewGoogleMatrix(Config{}); err == nil {
		t.Fatal("empty api key must be rejected")
	}
}

func TestStaticProvider(t *testing.T) {
	s := NewStatic(nil)
	m, err := s.Matrix(context.Background(), twoPoints())
	if err != nil {
		t.Fatalf("static matrix: %v", err)
	}
	if len(m.DistM) != 2 || m.DistM[0][1] <= 0 {
		t.Fatalf("expected haversine estimate, got %+v", m)
	}

	fixed := &opt.Matrix{DistM: [][]float64{{0, 5}, {5, 0}}, DurSec: [][]float64{{0, 1}, {1, 0}}}
	s = NewStatic(fixed)
	m, err = s.Matrix(context.Background(), twoPoints())
	if err != nil {
		t.Fatalf("fixed matrix: %v", err)
	}
	if m.DistM[0][1] != 5 {
		t.Fatalf("fixed matrix not returned: %+v", m)
	}
}
