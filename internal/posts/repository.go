package posts

import "context"

// Repository owns every read and write against the posts table. Implementations
// classify storage faults into ErrNotFound, ErrSlugExists or
// ErrStorageUnavailable before returning them.
type Repository interface {
	Transactor

	// Create derives the slug from title and inserts the post.
	Create(ctx context.Context, title, content string) (*Post, error)
	// ListAll returns every post, newest first. An empty table yields an empty slice.
	ListAll(ctx context.Context) ([]*Post, error)
	FindBySlug(ctx context.Context, slug string) (*Post, error)
	FindByID(ctx context.Context, id int64) (*Post, error)
	// Update overwrites title, slug and content of an existing post.
	Update(ctx context.Context, id int64, title, slug, content string) error
	// Delete removes the post if present and reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// Transactor runs fn so that repository calls made with the context it
// receives share one transaction. Begin and commit failures are reported as
// ErrStorageUnavailable.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
