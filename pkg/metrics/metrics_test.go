package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sternrassler/twitter-reader/pkg/cache"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestNames(t *testing.T) {
	cache.CacheHits.Inc()

	names, err := Names()
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}

	found := false
	for _, name := range names {
		if !strings.HasPrefix(name, Namespace+"_") {
			t.Errorf("Names() returned foreign metric %q", name)
		}
		if name == "twitter_reader_cache_hits_total" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, want twitter_reader_cache_hits_total", names)
	}
}

func TestHandler(t *testing.T) {
	cache.CacheMisses.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "twitter_reader_cache_misses_total") {
		t.Error("metrics output lacks twitter_reader_cache_misses_total")
	}
}
