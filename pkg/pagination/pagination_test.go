package pagination_test

import (
	"net/url"
	"testing"

	"github.com/JaimeStill/docket/pkg/pagination"
)

func testConfig(t *testing.T) pagination.Config {
	t.Helper()
	var cfg pagination.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestPageRequestFromQuery(t *testing.T) {
	cfg := testConfig(t)

	values := url.Values{}
	values.Set("page", "3")
	values.Set("page_size", "1000")
	values.Set("search", "invoice")
	values.Set("sort", "-recorded_at")

	req := pagination.PageRequestFromQuery(values, cfg)
	if req.Page != 3 {
		t.Errorf("Page = %d", req.Page)
	}
	if req.PageSize != cfg.MaxPageSize {
		t.Errorf("PageSize = %d, want clamp to %d", req.PageSize, cfg.MaxPageSize)
	}
	if req.Search == nil || *req.Search != "invoice" {
		t.Errorf("Search = %v", req.Search)
	}
	if len(req.Sort) != 1 || !req.Sort[0].Descending {
		t.Errorf("Sort = %+v", req.Sort)
	}
}

func TestPageRequestDefaults(t *testing.T) {
	cfg := testConfig(t)
	req := pagination.PageRequestFromQuery(url.Values{}, cfg)
	if req.Page != 1 || req.PageSize != cfg.DefaultPageSize || req.Search != nil {
		t.Errorf("defaults = %+v", req)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 25, 4},
	}
	for _, tt := range tests {
		r := pagination.NewPageResult[int](nil, tt.total, 1, tt.size)
		if r.TotalPages != tt.want {
			t.Errorf("total=%d size=%d: TotalPages = %d, want %d", tt.total, tt.size, r.TotalPages, tt.want)
		}
		if r.Data == nil {
			t.Error("Data should never be nil")
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 50, MaxPageSize: 10}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error when default exceeds max")
	}
}

func TestSearchTrimmed(t *testing.T) {
	cfg := pagination.Config{MaxSearchLength: 4}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	values := url.Values{}
	values.Set("search", "accounts_payable")
	req := pagination.PageRequestFromQuery(values, cfg)
	if req.Search == nil || *req.Search != "acco" {
		t.Errorf("Search = %v, want acco", req.Search)
	}
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("TEST_MAX_SEARCH", "64")
	t.Setenv("TEST_MAX_PAGE", "not a number")

	var cfg pagination.Config
	if err := cfg.Finalize(&pagination.ConfigEnv{MaxSearchLength: "TEST_MAX_SEARCH", MaxPageSize: "TEST_MAX_PAGE"}); err != nil {
		t.Fatal(err)
	}
	if cfg.MaxSearchLength != 64 || cfg.MaxPageSize != 200 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Clamp(0) != cfg.DefaultPageSize || cfg.Clamp(500) != 200 || cfg.Clamp(7) != 7 {
		t.Error("Clamp does not respect bounds")
	}
}
