package supplier

import (
	"errors"
	"testing"
)

func TestRecord_Validate(t *testing.T) {
	r := Record{CompanyName: "  "}
	if err := r.Validate(); !errors.Is(err, ErrNoName) {
		t.Errorf("expected ErrNoName, got %v", err)
	}

	r.CompanyName = "Acme Machining"
	if err := r.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFailed(t *testing.T) {
	res := Failed(errors.New("connection refused"))
	if res.Error != "connection refused" {
		t.Errorf("expected error message, got %q", res.Error)
	}
	if res.Suppliers == nil || len(res.Suppliers) != 0 {
		t.Errorf("expected empty non-nil suppliers, got %v", res.Suppliers)
	}
	if res.IsLiveData || res.TotalResults != 0 {
		t.Errorf("failed result should not be live data")
	}

	if Failed(nil).Error == "" {
		t.Errorf("expected placeholder message for nil error")
	}
}

func TestSplitLocation(t *testing.T) {
	cases := []struct {
		in, city, state string
	}{
		{"Cleveland, OH", "Cleveland", "OH"},
		{"Cleveland, OH 44101", "Cleveland", "OH"},
		{"Ohio", "Ohio", ""},
		{"", "", ""},
		{"St. Louis, Missouri", "St. Louis", "Missouri"},
	}
	for _, c := range cases {
		city, state := SplitLocation(c.in)
		if city != c.city || state != c.state {
			t.Errorf("SplitLocation(%q) = %q, %q; want %q, %q", c.in, city, state, c.city, c.state)
		}
	}
}
