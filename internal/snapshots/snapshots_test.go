package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jeremyjsx/quill/internal/posts"
	"github.com/jeremyjsx/quill/internal/storage"
)

type mockLister struct {
	getAll func(ctx context.Context) ([]*posts.Post, error)
}

func (m *mockLister) GetAllPosts(ctx context.Context) ([]*posts.Post, error) {
	if m.getAll != nil {
		return m.getAll(ctx)
	}
	return []*posts.Post{}, nil
}

type memStorage struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) Upload(_ context.Context, key string, body io.Reader, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, m.err
}

func TestExporter_ExportAndFetch(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	lister := &mockLister{getAll: func(context.Context) ([]*posts.Post, error) {
		return []*posts.Post{
			{ID: 2, Title: "Second", Slug: "second", Content: "b", CreatedAt: created},
			{ID: 1, Title: "First", Slug: "first", Content: "a", CreatedAt: created},
		}, nil
	}}
	store := newMemStorage()
	e := NewExporter(lister, store)
	e.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 999, time.UTC) }

	key, err := e.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if want := "snapshots/posts-20250304T050607Z.json"; key != want {
		t.Errorf("key = %q, want %q", key, want)
	}
	if ct := store.types[key]; ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	data, err := e.Fetch(ctx, "posts-20250304T050607Z.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Total != 2 || len(snap.Posts) != 2 || snap.Posts[0].Slug != "second" {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.ExportedAt.Equal(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Errorf("exported_at = %v", snap.ExportedAt)
	}
}

func TestExporter_ExportEmpty(t *testing.T) {
	store := newMemStorage()
	e := NewExporter(&mockLister{}, store)
	key, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.Contains(store.objects[key], []byte(`"posts":[]`)) {
		t.Errorf("body = %s", store.objects[key])
	}
}

func TestExporter_ExportErrors(t *testing.T) {
	t.Run("list fails", func(t *testing.T) {
		store := newMemStorage()
		lister := &mockLister{getAll: func(context.Context) ([]*posts.Post, error) {
			return nil, posts.ErrStorageUnavailable
		}}
		_, err := NewExporter(lister, store).Export(context.Background())
		if !errors.Is(err, posts.ErrStorageUnavailable) {
			t.Errorf("err = %v", err)
		}
		if len(store.objects) != 0 {
			t.Error("nothing should be uploaded")
		}
	})

	t.Run("upload fails", func(t *testing.T) {
		boom := errors.New("bucket gone")
		store := newMemStorage()
		store.err = boom
		_, err := NewExporter(&mockLister{}, store).Export(context.Background())
		if !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestExporter_Fetch(t *testing.T) {
	e := NewExporter(&mockLister{}, newMemStorage())

	tests := []struct {
		name string
		want error
	}{
		{"posts-20250304T050607Z.json", ErrNotFound},
		{"../secrets.json", ErrInvalidName},
		{"posts-latest.json", ErrInvalidName},
		{"", ErrInvalidName},
	}
	for _, tt := range tests {
		if _, err := e.Fetch(context.Background(), tt.name); !errors.Is(err, tt.want) {
			t.Errorf("Fetch(%q) err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestKey(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := Key(time.Date(2025, 6, 1, 2, 0, 0, 0, loc))
	if want := "snapshots/posts-20250601T000000Z.json"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}
