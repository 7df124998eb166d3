package search

import (
	"testing"
)

func TestDetectQuickActions(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLabels []string
	}{
		{
			name:       "empty query",
			query:      "   ",
			wantLabels: nil,
		},
		{
			name:       "no keywords",
			query:      "xyzzy",
			wantLabels: []string{},
		},
		{
			name:       "free keyword",
			query:      "free stuff",
			wantLabels: []string{"Free events"},
		},
		{
			name:       "no cover counts as free",
			query:      "no cover shows",
			wantLabels: []string{"Free events"},
		},
		{
			name:       "category keyword",
			query:      "comedy anywhere",
			wantLabels: []string{"Browse comedy"},
		},
		{
			name:       "time keyword",
			query:      "anything tonight",
			wantLabels: []string{"Happening tonight"},
		},
		{
			name:       "weekend keyword",
			query:      "plans this weekend",
			wantLabels: []string{"This weekend"},
		},
		{
			name:       "neighborhood keyword",
			query:      "around downtown",
			wantLabels: []string{"Explore downtown"},
		},
		{
			name:  "cap drops the neighborhood group",
			query: "free jazz tonight in downtown",
			wantLabels: []string{
				"Free events",
				"Browse music",
				"Happening tonight",
			},
		},
		{
			name:       "one action per group",
			query:      "tonight or today or this weekend",
			wantLabels: []string{"Happening tonight"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectQuickActions(tt.query, "")
			if tt.wantLabels == nil {
				if got != nil {
					t.Fatalf("DetectQuickActions(%q) = %v, want nil", tt.query, got)
				}
				return
			}
			if len(got) != len(tt.wantLabels) {
				t.Fatalf("DetectQuickActions(%q) returned %d actions, want %d", tt.query, len(got), len(tt.wantLabels))
			}
			for i, want := range tt.wantLabels {
				if got[i].Label != want {
					t.Errorf("action[%d].Label = %q, want %q", i, got[i].Label, want)
				}
			}
		})
	}
}

func TestQuickActionURLScoping(t *testing.T) {
	actions := DetectQuickActions("free jazz", "sf")
	if len(actions) == 0 {
		t.Fatal("no actions detected")
	}
	if got, want := actions[0].URL, "/p/sf/search?free=true"; got != want {
		t.Errorf("scoped URL = %q, want %q", got, want)
	}

	actions = DetectQuickActions("free jazz", "")
	if got, want := actions[0].URL, "/search?free=true"; got != want {
		t.Errorf("unscoped URL = %q, want %q", got, want)
	}
}

func TestQuickActionParams(t *testing.T) {
	actions := DetectQuickActions("music this weekend", "")
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if got := actions[0].Params["category"]; got != "music" {
		t.Errorf("category param = %q, want music", got)
	}
	if got := actions[1].Params["date"]; got != string(DateWeekend) {
		t.Errorf("date param = %q, want %q", got, DateWeekend)
	}
}
