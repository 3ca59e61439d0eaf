package model

import (
	"errors"
	"testing"
)

func TestParseRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		word string
		want Rating
	}{
		{"One", 1},
		{"Two", 2},
		{"Three", 3},
		{"Four", 4},
		{"Five", 5},
		{"Zero", RatingNone},
		{"five", RatingNone},
		{"", RatingNone},
		{"star-rating", RatingNone},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			t.Parallel()
			if got := ParseRating(tt.word); got != tt.want {
				t.Errorf("ParseRating(%q) = %d, want %d", tt.word, got, tt.want)
			}
		})
	}
}

func TestParseRating_IsBijective(t *testing.T) {
	t.Parallel()

	seen := make(map[Rating]string)
	for _, word := range []string{"One", "Two", "Three", "Four", "Five"} {
		r := ParseRating(word)
		if !r.Valid() {
			t.Fatalf("ParseRating(%q) = %d is not valid", word, r)
		}
		if prev, ok := seen[r]; ok {
			t.Errorf("%q and %q both map to %d", prev, word, r)
		}
		seen[r] = word
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct ratings, got %d", len(seen))
	}
}

func TestRatingString(t *testing.T) {
	t.Parallel()

	if got := Rating(4).String(); got != "4" {
		t.Errorf("Rating(4).String() = %q", got)
	}
	if got := RatingNone.String(); got != "" {
		t.Errorf("RatingNone.String() = %q, want empty", got)
	}
	if got := Rating(9).String(); got != "" {
		t.Errorf("Rating(9).String() = %q, want empty", got)
	}
}

func TestProductRecordStock(t *testing.T) {
	t.Parallel()

	n := 22
	if got, ok := (ProductRecord{NumberAvailable: &n}).Stock(); !ok || got != 22 {
		t.Errorf("Stock() = %d, %v; want 22, true", got, ok)
	}
	if _, ok := (ProductRecord{}).Stock(); ok {
		t.Error("expected unknown stock for nil NumberAvailable")
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slug string
		want string
	}{
		{"travel_2", "Travel"},
		{"science-fiction_16", "Science Fiction"},
		{"add-a-comment_18", "Add A Comment"},
		{"poetry", "Poetry"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			t.Parallel()
			if got := (Category{Slug: tt.slug}).DisplayName(); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.slug, got, tt.want)
			}
		})
	}
}

func TestCategoryMatchesAny(t *testing.T) {
	t.Parallel()

	c := Category{Slug: "science-fiction_16"}

	tests := []struct {
		name  string
		names []string
		want  bool
	}{
		{name: "slug", names: []string{"science-fiction_16"}, want: true},
		{name: "display name any case", names: []string{"science fiction"}, want: true},
		{name: "padded", names: []string{"  Science Fiction "}, want: true},
		{name: "other", names: []string{"travel_2", "Poetry"}, want: false},
		{name: "empty", names: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.MatchesAny(tt.names); got != tt.want {
				t.Errorf("MatchesAny(%v) = %v, want %v", tt.names, got, tt.want)
			}
		})
	}
}

func TestCategoryResult(t *testing.T) {
	t.Parallel()

	r := NewCategoryResult("travel_2")
	if r.Category.Slug != "travel_2" {
		t.Errorf("slug = %q", r.Category.Slug)
	}
	if r.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	r.AddStep("paginate")
	r.AddFailure("extract_products", "http://x/p.html", errors.New("boom"))
	r.AddFailure("extract_products", "http://x/q.html", nil)
	r.Finish()

	if len(r.PerformedSteps) != 1 || r.PerformedSteps[0] != "paginate" {
		t.Errorf("PerformedSteps = %v", r.PerformedSteps)
	}
	if len(r.Failures) != 2 || r.Failures[0].Error != "boom" || r.Failures[1].Error != "" {
		t.Errorf("Failures = %+v", r.Failures)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
}
