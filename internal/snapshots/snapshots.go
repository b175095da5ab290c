// Package snapshots exports the whole posts table as a single JSON document to
// object storage and reads exported documents back.
package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/jeremyjsx/quill/internal/posts"
	"github.com/jeremyjsx/quill/internal/storage"
)

const (
	prefix     = "snapshots/"
	nameLayout = "20060102T150405Z"
)

var (
	ErrInvalidName = errors.New("invalid snapshot name")
	ErrNotFound    = errors.New("snapshot not found")
)

var namePattern = regexp.MustCompile(`^posts-\d{8}T\d{6}Z\.json$`)

// PostLister is the slice of the post service an export needs.
type PostLister interface {
	GetAllPosts(ctx context.Context) ([]*posts.Post, error)
}

type Snapshot struct {
	ExportedAt time.Time     `json:"exported_at"`
	Total      int           `json:"total"`
	Posts      []*posts.Post `json:"posts"`
}

type Exporter struct {
	posts PostLister
	store storage.Storage
	now   func() time.Time
}

func NewExporter(lister PostLister, store storage.Storage) *Exporter {
	return &Exporter{
		posts: lister,
		store: store,
		now:   time.Now,
	}
}

// Export writes every post to a new object and returns its key.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	all, err := e.posts.GetAllPosts(ctx)
	if err != nil {
		return "", err
	}

	at := e.now().UTC().Truncate(time.Second)
	body, err := json.Marshal(Snapshot{ExportedAt: at, Total: len(all), Posts: all})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := Key(at)
	if err := e.store.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// Fetch returns the raw document stored under snapshots/<name>.
func (e *Exporter) Fetch(ctx context.Context, name string) ([]byte, error) {
	if !namePattern.MatchString(name) {
		return nil, ErrInvalidName
	}
	rc, err := e.store.Download(ctx, prefix+name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return data, nil
}

// Key is the object key of a snapshot taken at t.
func Key(t time.Time) string {
	return prefix + "posts-" + t.UTC().Format(nameLayout) + ".json"
}
