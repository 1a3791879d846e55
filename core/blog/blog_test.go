package blog

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("loading: %v", err)
	}

	posts := s.List()
	if len(posts) == 0 {
		t.Fatal("no posts bundled")
	}
	for i := 1; i < len(posts); i++ {
		if posts[i].PublishedAt.After(posts[i-1].PublishedAt) {
			t.Fatalf("posts not sorted newest first at %d", i)
		}
	}

	p, err := s.Fetch("why-wallet-login")
	if err != nil {
		t.Fatalf("fetching: %v", err)
	}
	if p.Body == "" || p.Author == "" {
		t.Fatalf("incomplete post %+v", p)
	}

	if _, err := s.Fetch("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseOrdersByDate(t *testing.T) {
	s, err := parse([]byte(`
- {slug: a, title: A, published: 2023-01-01}
- {slug: b, title: B, published: 2024-01-01}
`))
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, p := range s.List() {
		got = append(got, p.Slug)
	}
	if diff := cmp.Diff([]string{"b", "a"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}
