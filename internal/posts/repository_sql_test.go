package posts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeremyjsx/quill/internal/database"
)

func newTestRepo(t *testing.T) (*SQLRepository, *database.DB) {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Driver: "sqlite", URL: ":memory:"})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db), db
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}

func TestSQLRepository_Create(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2025, 5, 1, 10, 30, 0, 123456789, time.UTC)
	repo.now = func() time.Time { return created }

	post, err := repo.Create(ctx, "Hello, World!", "body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.ID <= 0 {
		t.Errorf("ID = %d, want positive", post.ID)
	}
	if post.Slug != "hello-world" || post.Title != "Hello, World!" || post.Content != "body" {
		t.Errorf("got %+v", post)
	}

	got, err := repo.FindBySlug(ctx, "hello-world")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if got.ID != post.ID || got.Title != post.Title || got.Content != post.Content {
		t.Errorf("FindBySlug = %+v, want %+v", got, post)
	}
	if want := created.Truncate(time.Microsecond); !got.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want)
	}
	if !got.CreatedAt.Equal(post.CreatedAt) {
		t.Errorf("stored CreatedAt %v differs from returned %v", got.CreatedAt, post.CreatedAt)
	}
}

func TestSQLRepository_Create_DuplicateSlug(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, "Hello, World!", "first body")
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err = repo.Create(ctx, "hello   world", "second body")
	if !errors.Is(err, ErrSlugExists) {
		t.Fatalf("second Create err = %v, want ErrSlugExists", err)
	}

	got, err := repo.FindBySlug(ctx, "hello-world")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if got.ID != first.ID || got.Title != "Hello, World!" || got.Content != "first body" {
		t.Errorf("first post changed: %+v", got)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestSQLRepository_Create_UnsluggableTitle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, title := range []string{"!!!", "   ", "--"} {
		_, err := repo.Create(ctx, title, "body")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Create(%q) err = %v, want ErrInvalidInput", title, err)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Fields["title"] == "" {
			t.Errorf("Create(%q) err = %v, want title field error", title, err)
		}
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestSQLRepository_ListAll_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListAll = %#v, want empty non-nil slice", got)
	}
}

func TestSQLRepository_ListAll_NewestFirst(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	repo.now = stepClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Hour)

	for _, title := range []string{"Oldest", "Middle", "Newest"} {
		if _, err := repo.Create(ctx, title, "x"); err != nil {
			t.Fatalf("Create(%q): %v", title, err)
		}
	}

	got, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	want := []string{"newest", "middle", "oldest"}
	if len(got) != len(want) {
		t.Fatalf("got %d posts, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.Slug != want[i] {
			t.Errorf("position %d = %q, want %q", i, p.Slug, want[i])
		}
	}
}

func TestSQLRepository_ListAll_SameTimestamp(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return at }

	a, _ := repo.Create(ctx, "A", "x")
	b, _ := repo.Create(ctx, "B", "x")

	got, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != a.ID {
		t.Errorf("ties should list the later insert first, got %+v", got)
	}
}

func TestSQLRepository_FindByID_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID err = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindBySlug(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindBySlug err = %v, want ErrNotFound", err)
	}
}

func TestSQLRepository_Update(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, "Original", "old body")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Update(ctx, post.ID, "Renamed", "renamed-post", "new body"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.FindByID(ctx, post.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ID != post.ID || got.Title != "Renamed" || got.Slug != "renamed-post" || got.Content != "new body" {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(post.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", post.CreatedAt, got.CreatedAt)
	}
	if _, err := repo.FindBySlug(ctx, "original"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old slug should no longer resolve, err = %v", err)
	}
}

func TestSQLRepository_Update_SameValues(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	post, _ := repo.Create(ctx, "Same", "body")
	if err := repo.Update(ctx, post.ID, post.Title, post.Slug, post.Content); err != nil {
		t.Errorf("Update with unchanged values: %v", err)
	}
}

func TestSQLRepository_Update_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Update(context.Background(), 99, "T", "t", "c")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update err = %v, want ErrNotFound", err)
	}
}

func TestSQLRepository_Update_SlugConflict(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, _ := repo.Create(ctx, "First", "1")
	second, _ := repo.Create(ctx, "Second", "2")

	err := repo.Update(ctx, second.ID, "Second", first.Slug, "2")
	if !errors.Is(err, ErrSlugExists) {
		t.Fatalf("Update err = %v, want ErrSlugExists", err)
	}

	got, _ := repo.FindByID(ctx, second.ID)
	if got.Slug != "second" {
		t.Errorf("failed update changed slug to %q", got.Slug)
	}
}

func TestSQLRepository_Delete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	post, _ := repo.Create(ctx, "Doomed", "x")
	keep, _ := repo.Create(ctx, "Keeper", "x")

	removed, err := repo.Delete(ctx, post.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}
	if _, err := repo.FindByID(ctx, post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID after delete err = %v, want ErrNotFound", err)
	}

	removed, err = repo.Delete(ctx, post.ID)
	if err != nil || removed {
		t.Errorf("second Delete = (%v, %v), want (false, nil)", removed, err)
	}

	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if _, err := repo.FindByID(ctx, keep.ID); err != nil {
		t.Errorf("unrelated post affected: %v", err)
	}
}

func TestSQLRepository_RunInTransaction_Rollback(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.Create(ctx, "Inside", "x"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count = %d after rollback, want 0", n)
	}
}

func TestSQLRepository_StorageUnavailable(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()
	_ = db.Close()

	if _, err := repo.ListAll(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("ListAll err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := repo.Create(ctx, "Title", "x"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Create err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := repo.FindByID(ctx, 1); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("FindByID err = %v, want ErrStorageUnavailable", err)
	}
	err := repo.RunInTransaction(ctx, func(context.Context) error { return nil })
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("RunInTransaction err = %v, want ErrStorageUnavailable", err)
	}
}

func TestService_SQLScenario(t *testing.T) {
	repo, _ := newTestRepo(t)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "Hello, World!", "body")
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.Slug != "hello-world" {
		t.Fatalf("slug = %q, want hello-world", post.Slug)
	}

	got, err := svc.GetPostBySlug(ctx, "hello-world")
	if err != nil || got.ID != post.ID {
		t.Fatalf("GetPostBySlug = (%+v, %v)", got, err)
	}

	updated, err := svc.UpdatePost(ctx, post.ID, "Hello again", "hello-again", "new body")
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if updated.ID != post.ID || updated.Slug != "hello-again" || !updated.CreatedAt.Equal(post.CreatedAt) {
		t.Errorf("UpdatePost = %+v", updated)
	}

	summary, err := svc.GetDashboardSummary(ctx)
	if err != nil {
		t.Fatalf("GetDashboardSummary: %v", err)
	}
	if summary.TotalPosts != 1 || len(summary.Posts) != 1 {
		t.Errorf("summary = %+v", summary)
	}

	if err := svc.DeletePost(ctx, post.ID); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := svc.GetPostForEdit(ctx, post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPostForEdit after delete err = %v, want ErrNotFound", err)
	}
	if err := svc.DeletePost(ctx, post.ID); err != nil {
		t.Errorf("second DeletePost: %v", err)
	}
}
