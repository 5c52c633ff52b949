package storage

import (
	"testing"
	"time"
)

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	run := &SearchRun{Source: "connex", Success: false, CreatedAt: now}

	yes, no := true, false
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	cases := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"source", Filter{Source: "connex"}, true},
		{"other source", Filter{Source: "thomasnet"}, false},
		{"failed", Filter{Success: &no}, true},
		{"succeeded", Filter{Success: &yes}, false},
		{"since past", Filter{Since: &past}, true},
		{"since future", Filter{Since: &future}, false},
	}
	for _, c := range cases {
		if got := c.filter.Match(run); got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestFilter_Page(t *testing.T) {
	runs := []*SearchRun{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	if got := (Filter{Limit: 2}).Page(runs); len(got) != 2 || got[0].ID != "1" {
		t.Errorf("unexpected limit page %v", got)
	}
	if got := (Filter{Offset: 1, Limit: 1}).Page(runs); len(got) != 1 || got[0].ID != "2" {
		t.Errorf("unexpected offset page %v", got)
	}
	if got := (Filter{Offset: 5}).Page(runs); len(got) != 0 {
		t.Errorf("expected empty page, got %v", got)
	}
}
