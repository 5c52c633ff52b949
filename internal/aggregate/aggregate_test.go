package aggregate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strategicvalueplus/scout/internal/match"
	"github.com/strategicvalueplus/scout/internal/source"
	"github.com/strategicvalueplus/scout/internal/storage"
	"github.com/strategicvalueplus/scout/internal/storage/jsonbackend"
	"github.com/strategicvalueplus/scout/internal/supplier"
)

type fakeScraper struct {
	name   supplier.Source
	result *supplier.SourceResult
	err    error
	panic  any
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeScraper) Name() supplier.Source { return f.name }

func (f *fakeScraper) Search(ctx context.Context, _ supplier.Criteria) (*supplier.SourceResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return supplier.Failed(ctx.Err()), nil
		}
	}
	if f.panic != nil {
		panic(f.panic)
	}
	return f.result, f.err
}

func records(src supplier.Source, names ...string) []supplier.Record {
	recs := make([]supplier.Record, len(names))
	for i, n := range names {
		recs[i] = supplier.Record{
			CompanyName: n,
			SourceURL:   fmt.Sprintf("https://%s.example/%d", src, i+1),
		}
	}
	return source.Label(recs, src)
}

func ok(src supplier.Source, total int, names ...string) *fakeScraper {
	return &fakeScraper{name: src, result: source.Result(records(src, names...), total)}
}

func newAggregator(t *testing.T, cfg Config) *Aggregator {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func TestAggregator_MergesAcrossSources(t *testing.T) {
	tn := ok(supplier.SourceThomasNet, 340, "Acme Manufacturing, LLC", "Beta Castings")
	cx := ok(supplier.SourceConnex, 12, "ACME MANUFACTURING INC", "Gamma Plastics")
	tn.result.Suppliers[0].Phone = ""
	cx.result.Suppliers[0].Phone = "555-0100"

	a := newAggregator(t, Config{Scrapers: []source.Scraper{tn, cx}})
	got := a.Search(context.Background(), supplier.Criteria{Keywords: "machining"})

	if len(got.Suppliers) != 3 {
		t.Fatalf("expected 3 merged suppliers, got %d", len(got.Suppliers))
	}
	acme := got.Suppliers[0]
	if acme.CompanyName != "Acme Manufacturing, LLC" {
		t.Errorf("expected first-inserted name, got %q", acme.CompanyName)
	}
	if acme.Source != supplier.SourceBoth {
		t.Errorf("expected source both, got %q", acme.Source)
	}
	if acme.ThomasNetURL != "https://thomasnet.example/1" || acme.ConnexURL != "https://connex.example/1" {
		t.Errorf("expected both per-source urls, got %q %q", acme.ThomasNetURL, acme.ConnexURL)
	}
	if acme.Phone != "555-0100" {
		t.Errorf("expected phone filled from connex, got %q", acme.Phone)
	}
	for i, r := range got.Suppliers {
		if want := fmt.Sprintf("agg-%d", i+1); r.ID != want {
			t.Errorf("expected id %s, got %s", want, r.ID)
		}
	}
	if got.TotalResults != 352 {
		t.Errorf("expected total to be the sum of source totals, got %d", got.TotalResults)
	}
	if !got.IsLiveData {
		t.Errorf("expected live data")
	}
	if !got.Sources["thomasnet"].Success || got.Sources["connex"].Count != 2 {
		t.Errorf("unexpected source statuses %+v", got.Sources)
	}
}

func TestAggregator_IsolatesFailures(t *testing.T) {
	cases := map[string]*fakeScraper{
		"soft error": {name: supplier.SourceConnex, result: &supplier.SourceResult{
			Suppliers:     []supplier.Record{},
			Authenticated: supplier.Bool(false),
			Error:         "login failed: still on login page",
		}},
		"go error": {name: supplier.SourceConnex, err: errors.New("boom")},
		"panic":    {name: supplier.SourceConnex, panic: "nil map write"},
		"nil":      {name: supplier.SourceConnex},
	}

	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			tn := ok(supplier.SourceThomasNet, 2, "Acme", "Beta")
			a := newAggregator(t, Config{Scrapers: []source.Scraper{tn, bad}})
			got := a.Search(context.Background(), supplier.Criteria{Keywords: "x"})

			if got.Sources["connex"].Success || got.Sources["connex"].Error == "" {
				t.Errorf("expected connex failure, got %+v", got.Sources["connex"])
			}
			if !got.Sources["thomasnet"].Success {
				t.Errorf("expected thomasnet success")
			}
			if !got.IsLiveData || len(got.Suppliers) != 2 {
				t.Fatalf("expected thomasnet records to survive, got %+v", got)
			}
			for _, r := range got.Suppliers {
				if r.Source != supplier.SourceThomasNet {
					t.Errorf("expected only thomasnet records, got %q", r.Source)
				}
			}
		})
	}
}

func TestAggregator_ReportsAuthentication(t *testing.T) {
	cx := &fakeScraper{name: supplier.SourceConnex, result: &supplier.SourceResult{
		Suppliers:     []supplier.Record{},
		Authenticated: supplier.Bool(false),
		Error:         "login failed: no credentials configured",
	}}
	a := newAggregator(t, Config{Scrapers: []source.Scraper{ok(supplier.SourceThomasNet, 1, "Acme"), cx}})
	got := a.Search(context.Background(), supplier.Criteria{})

	auth := got.Sources["connex"].Authenticated
	if auth == nil || *auth {
		t.Errorf("expected authenticated=false, got %v", auth)
	}
	if got.Sources["thomasnet"].Authenticated != nil {
		t.Errorf("expected no authentication flag for thomasnet")
	}
}

func TestAggregator_AllFail(t *testing.T) {
	a := newAggregator(t, Config{Scrapers: []source.Scraper{
		&fakeScraper{name: supplier.SourceThomasNet, err: errors.New("timeout")},
		&fakeScraper{name: supplier.SourceConnex, err: errors.New("timeout")},
	}})
	got := a.Search(context.Background(), supplier.Criteria{})

	if got.IsLiveData || got.TotalResults != 0 {
		t.Errorf("expected no live data, got %+v", got)
	}
	if got.Suppliers == nil || len(got.Suppliers) != 0 {
		t.Errorf("expected empty non-nil suppliers")
	}
}

func TestAggregator_TruncatesPerSource(t *testing.T) {
	names := make([]string, 30)
	for i := range names {
		names[i] = fmt.Sprintf("Company %d", i)
	}
	a := newAggregator(t, Config{
		Scrapers:            []source.Scraper{ok(supplier.SourceThomasNet, 500, names...)},
		MaxResultsPerSource: 10,
	})
	got := a.Search(context.Background(), supplier.Criteria{})

	if len(got.Suppliers) != 10 {
		t.Errorf("expected 10 suppliers, got %d", len(got.Suppliers))
	}
	if got.Sources["thomasnet"].Count != 10 || got.Sources["thomasnet"].Total != 500 {
		t.Errorf("unexpected status %+v", got.Sources["thomasnet"])
	}
	if got.TotalResults != 500 {
		t.Errorf("expected reported total to be kept, got %d", got.TotalResults)
	}
}

func TestAggregator_RunsConcurrently(t *testing.T) {
	slow := func(src supplier.Source) *fakeScraper {
		s := ok(src, 1, string(src)+" Co")
		s.delay = 200 * time.Millisecond
		return s
	}
	a := newAggregator(t, Config{Scrapers: []source.Scraper{slow(supplier.SourceThomasNet), slow(supplier.SourceConnex)}})

	start := time.Now()
	got := a.Search(context.Background(), supplier.Criteria{})
	if elapsed := time.Since(start); elapsed > 350*time.Millisecond {
		t.Errorf("expected sources to run in parallel, took %v", elapsed)
	}
	if len(got.Suppliers) != 2 {
		t.Errorf("expected 2 suppliers, got %d", len(got.Suppliers))
	}
}

func TestAggregator_Timeout(t *testing.T) {
	slow := ok(supplier.SourceConnex, 1, "Slow Co")
	slow.delay = time.Second
	a := newAggregator(t, Config{
		Scrapers: []source.Scraper{ok(supplier.SourceThomasNet, 1, "Fast Co"), slow},
		Timeout:  50 * time.Millisecond,
	})

	got := a.Search(context.Background(), supplier.Criteria{})
	if got.Sources["connex"].Success {
		t.Errorf("expected slow source to fail on deadline")
	}
	if len(got.Suppliers) != 1 || got.Suppliers[0].CompanyName != "Fast Co" {
		t.Errorf("expected fast source records, got %+v", got.Suppliers)
	}
}

func TestAggregator_RecordsRuns(t *testing.T) {
	store, err := jsonbackend.New(filepath.Join(t.TempDir(), "runs.jsonl"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	a := newAggregator(t, Config{
		Scrapers: []source.Scraper{
			ok(supplier.SourceThomasNet, 7, "Acme"),
			&fakeScraper{name: supplier.SourceConnex, err: errors.New("boom")},
		},
		Storage: store,
	})
	a.Search(context.Background(), supplier.Criteria{Keywords: "valves", Location: "Ohio"})

	runs, err := store.Query(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RequestID != runs[1].RequestID {
		t.Errorf("expected runs to share a request id")
	}
	bySource := map[string]*storage.SearchRun{}
	for _, r := range runs {
		bySource[r.Source] = r
	}
	if tn := bySource["thomasnet"]; tn == nil || !tn.Success || tn.Total != 7 || tn.Keywords != "valves" {
		t.Errorf("unexpected thomasnet run %+v", tn)
	}
	if cx := bySource["connex"]; cx == nil || cx.Success || cx.Error != "boom" {
		t.Errorf("unexpected connex run %+v", cx)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Errorf("expected error without scrapers")
	}
	dup := []source.Scraper{ok(supplier.SourceThomasNet, 0), ok(supplier.SourceThomasNet, 0)}
	if _, err := New(Config{Scrapers: dup}); err == nil {
		t.Errorf("expected error for duplicate sources")
	}

	a := newAggregator(t, Config{Scrapers: []source.Scraper{ok(supplier.SourceConnex, 0), ok(supplier.SourceThomasNet, 0)}})
	if got := a.Sources(); len(got) != 2 || got[0] != supplier.SourceConnex {
		t.Errorf("expected sources in configured order, got %v", got)
	}
	if _, ok := a.matcher.(match.Exact); !ok {
		t.Errorf("expected exact matcher by default")
	}
}
