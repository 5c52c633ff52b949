package thomasnet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/strategicvalueplus/scout/internal/browser/browsertest"
	"github.com/strategicvalueplus/scout/internal/fingerprint"
	"github.com/strategicvalueplus/scout/internal/scraper"
	"github.com/strategicvalueplus/scout/internal/supplier"
	"github.com/strategicvalueplus/scout/pkg/useragent"
)

const searchPage = `<html><body>
<p class="result-count">340 results</p>
<div class="supplier-card">
  <h2 class="company-name"><a href="/profile/1/acme.html">Acme Manufacturing, LLC</a></h2>
  <p class="location">Dayton, OH</p>
  <p class="description">CNC machining and turning.</p>
</div>
<div class="supplier-card">
  <h2 class="company-name"><a href="/profile/2/beta.html">Beta Castings</a></h2>
  <p class="location">Akron, OH</p>
</div>
</body></html>`

const profilePage = `<html><head>
<meta name="description" content="  Family owned   machine shop. ">
</head><body>
<a href="tel:+1-555-0100">Call us</a>
<a class="website" href="https://acme.example.com">Visit Website</a>
<a href="/profile/1/acme.html">Back</a>
</body></html>`

func newFetcher(t *testing.T) *scraper.Fetcher {
	t.Helper()
	f, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"ScoutTest/1.0"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func newServer(t *testing.T, robots string) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte(robots))
		case "/search.html":
			queries = append(queries, r.URL.RawQuery)
			_, _ = w.Write([]byte(searchPage))
		case "/profile/1/acme.html":
			_, _ = w.Write([]byte(profilePage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts, &queries
}

func TestScraper_SearchURL(t *testing.T) {
	s, err := New(Config{Fetcher: newFetcher(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.SearchURL(supplier.Criteria{Keywords: "CNC machining", Location: "Ohio"})
	want := "https://www.thomasnet.com/search.html?searchsource=suppliers&searchterm=CNC+machining&where=Ohio"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	got = s.SearchURL(supplier.Criteria{Category: "casting"})
	if !strings.Contains(got, "searchterm=casting") || strings.Contains(got, "where=") {
		t.Errorf("expected category search without location, got %s", got)
	}
}

func TestScraper_SearchHTTP(t *testing.T) {
	ts, queries := newServer(t, "User-agent: *\nAllow: /\n")
	f := newFetcher(t)

	s, err := New(Config{
		BaseURL: ts.URL,
		Fetcher: f,
		Robots:  scraper.NewRobotsTxtAuditor(f, nil),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := s.Search(context.Background(), supplier.Criteria{Keywords: "CNC machining", Location: "Ohio"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected result error %q", res.Error)
	}
	if len(*queries) != 1 || !strings.Contains((*queries)[0], "where=Ohio") {
		t.Errorf("unexpected search queries %v", *queries)
	}
	if !res.IsLiveData || len(res.Suppliers) != 2 {
		t.Fatalf("expected 2 live records, got %+v", res)
	}
	if res.TotalResults != 340 {
		t.Errorf("expected advertised total 340, got %d", res.TotalResults)
	}

	acme := res.Suppliers[0]
	if acme.ID != "thomasnet-1" || acme.Source != supplier.SourceThomasNet {
		t.Errorf("unexpected labels %q %q", acme.ID, acme.Source)
	}
	if acme.ThomasNetURL != ts.URL+"/profile/1/acme.html" {
		t.Errorf("unexpected thomasnet url %q", acme.ThomasNetURL)
	}
	if acme.City != "Dayton" || acme.State != "OH" {
		t.Errorf("unexpected city/state %q %q", acme.City, acme.State)
	}
}

func TestScraper_SearchRobotsDisallowed(t *testing.T) {
	ts, queries := newServer(t, "User-agent: *\nDisallow: /search.html\n")
	f := newFetcher(t)

	s, _ := New(Config{BaseURL: ts.URL, Fetcher: f, Robots: scraper.NewRobotsTxtAuditor(f, nil)})
	res, err := s.Search(context.Background(), supplier.Criteria{Keywords: "valves"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Error, "robots.txt") {
		t.Errorf("expected robots error, got %q", res.Error)
	}
	if res.IsLiveData || len(res.Suppliers) != 0 || res.Suppliers == nil {
		t.Errorf("expected empty failed result, got %+v", res)
	}
	if len(*queries) != 0 {
		t.Errorf("expected search page not to be fetched")
	}
}

func TestScraper_SearchHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	s, _ := New(Config{BaseURL: ts.URL, Fetcher: newFetcher(t)})
	res, err := s.Search(context.Background(), supplier.Criteria{Keywords: "valves"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Error, "status 500") {
		t.Errorf("expected status error, got %q", res.Error)
	}
	if res.TotalResults != 0 {
		t.Errorf("expected zero total, got %d", res.TotalResults)
	}
}

func TestScraper_SearchBrowser(t *testing.T) {
	d := &browsertest.Driver{Site: &browsertest.Site{
		Pages: map[string]string{"/search.html": searchPage},
	}}
	s, err := New(Config{Mode: ModeBrowser, Driver: d})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, _ := s.Search(context.Background(), supplier.Criteria{Keywords: "castings"})
	if res.Error != "" || len(res.Suppliers) != 2 {
		t.Fatalf("expected 2 records, got %+v", res)
	}
	if res.Suppliers[1].ThomasNetURL != "https://www.thomasnet.com/profile/2/beta.html" {
		t.Errorf("unexpected url %q", res.Suppliers[1].ThomasNetURL)
	}
	if d.OpenPages() != 0 {
		t.Errorf("expected page to be closed")
	}
}

func TestScraper_SearchBrowserBlocked(t *testing.T) {
	d := &browsertest.Driver{Site: &browsertest.Site{
		Pages: map[string]string{"/search.html": `<html><head><title>Just a moment...</title></head></html>`},
	}}
	s, _ := New(Config{Mode: ModeBrowser, Driver: d})

	res, _ := s.Search(context.Background(), supplier.Criteria{Keywords: "castings"})
	if !strings.Contains(res.Error, "Cloudflare") {
		t.Errorf("expected cloudflare block, got %q", res.Error)
	}
}

func TestScraper_SearchBrowserNavigateError(t *testing.T) {
	d := &browsertest.Driver{Site: &browsertest.Site{NavigateErr: errors.New("net::ERR_TIMED_OUT")}}
	s, _ := New(Config{Mode: ModeBrowser, Driver: d})

	res, err := s.Search(context.Background(), supplier.Criteria{Keywords: "castings"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Error, "ERR_TIMED_OUT") || res.IsLiveData {
		t.Errorf("expected navigation failure, got %+v", res)
	}
}

func TestScraper_Details(t *testing.T) {
	ts, _ := newServer(t, "")
	s, _ := New(Config{BaseURL: ts.URL, Fetcher: newFetcher(t)})

	d, err := s.Details(context.Background(), ts.URL+"/profile/1/acme.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Phone != "+1-555-0100" {
		t.Errorf("unexpected phone %q", d.Phone)
	}
	if d.Website != "https://acme.example.com" {
		t.Errorf("unexpected website %q", d.Website)
	}
	if d.Description != "Family owned machine shop." {
		t.Errorf("unexpected description %q", d.Description)
	}
}

func TestScraper_DetailsInvalidURL(t *testing.T) {
	s, _ := New(Config{Fetcher: newFetcher(t)})
	if _, err := s.Details(context.Background(), "javascript:alert(1)"); !errors.Is(err, ErrInvalidProfileURL) {
		t.Errorf("expected invalid profile url, got %v", err)
	}
}

func TestScraper_DetailsOffSite(t *testing.T) {
	var hits int
	off := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(profilePage))
	}))
	t.Cleanup(off.Close)

	ts, _ := newServer(t, "")
	s, _ := New(Config{BaseURL: ts.URL, Fetcher: newFetcher(t)})

	for _, raw := range []string{
		off.URL + "/profile/1/acme.html",
		"http://169.254.169.254/latest/meta-data",
		"https://evil.example/profile/1",
	} {
		_, err := s.Details(context.Background(), raw)
		if !errors.Is(err, ErrInvalidProfileURL) {
			t.Errorf("%s: expected invalid profile url, got %v", raw, err)
		}
	}
	if hits != 0 {
		t.Errorf("expected no request to the off-site host, got %d", hits)
	}
}

func TestScraper_DetailsWWWHost(t *testing.T) {
	s, _ := New(Config{Fetcher: newFetcher(t)})
	base := s.base
	for _, raw := range []string{"https://thomasnet.com/profile/1", "https://WWW.ThomasNet.com/profile/1"} {
		u, _ := url.Parse(raw)
		if !onSite(base, u) {
			t.Errorf("expected %s to be on site", raw)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Errorf("expected error without fetcher")
	}
	if _, err := New(Config{Mode: ModeBrowser}); err == nil {
		t.Errorf("expected error without driver")
	}
	if _, err := ParseMode("carrier-pigeon"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}
