// Package blog serves the editorial posts bundled with the binary.
package blog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/irsalhamdi/chainacademy/api/web"
	"github.com/irsalhamdi/chainacademy/api/weberr"
	"gopkg.in/yaml.v3"
)

//go:embed posts/posts.yaml
var postsYAML []byte

var ErrNotFound = errors.New("post not found")

type Post struct {
	Slug        string    `json:"slug" yaml:"slug"`
	Title       string    `json:"title" yaml:"title"`
	Author      string    `json:"author" yaml:"author"`
	PublishedAt time.Time `json:"publishedAt" yaml:"published"`
	Summary     string    `json:"summary" yaml:"summary"`
	Body        string    `json:"body,omitempty" yaml:"body"`
}

type Store struct {
	posts []Post
}

// Load decodes the bundled posts, newest first.
func Load() (*Store, error) {
	return parse(postsYAML)
}

func parse(b []byte) (*Store, error) {
	var posts []Post
	if err := yaml.Unmarshal(b, &posts); err != nil {
		return nil, fmt.Errorf("decoding posts: %w", err)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt.After(posts[j].PublishedAt)
	})
	return &Store{posts: posts}, nil
}

func (s *Store) List() []Post {
	out := make([]Post, len(s.posts))
	copy(out, s.posts)
	return out
}

func (s *Store) Fetch(slug string) (Post, error) {
	for _, p := range s.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

func HandleList(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		posts := s.List()
		for i := range posts {
			posts[i].Body = ""
		}
		return web.Respond(ctx, w, posts, http.StatusOK)
	}
}

func HandleShow(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		p, err := s.Fetch(web.Param(r, "slug"))
		if err != nil {
			return weberr.NotFound(err)
		}
		return web.Respond(ctx, w, p, http.StatusOK)
	}
}
