package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyjsx/quill/internal/database"
	"github.com/jeremyjsx/quill/internal/slug"
)

var _ Repository = (*SQLRepository)(nil)

// SQLRepository implements Repository over any dialect supported by the
// database package.
type SQLRepository struct {
	db  *database.DB
	now func() time.Time
}

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

const (
	insertPostQuery = `INSERT INTO posts (title, slug, content, created_at) VALUES (?, ?, ?, ?)`

	selectPostColumns = `SELECT id, title, slug, content, created_at FROM posts`

	listPostsQuery = selectPostColumns + ` ORDER BY created_at DESC, id DESC`

	getPostBySlugQuery = selectPostColumns + ` WHERE slug = ?`

	getPostByIDQuery = selectPostColumns + ` WHERE id = ?`

	updatePostQuery = `UPDATE posts SET title = ?, slug = ?, content = ? WHERE id = ?`

	deletePostQuery = `DELETE FROM posts WHERE id = ?`

	countPostsQuery = `SELECT COUNT(*) FROM posts`
)

func (r *SQLRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := r.db.RunInTransaction(ctx, fn)
	if err == nil || isClassified(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func (r *SQLRepository) Create(ctx context.Context, title, content string) (*Post, error) {
	s, err := slug.Generate(title)
	if err != nil {
		if errors.Is(err, slug.ErrEmpty) {
			return nil, invalidField("title", "must contain at least one letter or digit")
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(s) > MaxTitleLength {
		return nil, invalidField("title", fmt.Sprintf("produces a slug longer than %d characters", MaxTitleLength))
	}

	dialect := r.db.Dialect()
	createdAt := r.now().UTC().Truncate(time.Microsecond)
	post := &Post{Title: title, Slug: s, Content: content, CreatedAt: createdAt}
	args := []any{title, s, content, dialect.TimeArg(createdAt)}

	exec := r.db.Executor(ctx)
	if dialect.SupportsReturning() {
		err = exec.QueryRowContext(ctx, dialect.Rebind(insertPostQuery+" RETURNING id"), args...).Scan(&post.ID)
	} else {
		var res sql.Result
		res, err = exec.ExecContext(ctx, dialect.Rebind(insertPostQuery), args...)
		if err == nil {
			post.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return nil, classify("create post", err)
	}
	return post, nil
}

func (r *SQLRepository) ListAll(ctx context.Context) ([]*Post, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, listPostsQuery)
	if err != nil {
		return nil, classify("list posts", err)
	}
	defer rows.Close()

	posts := make([]*Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, classify("scan post row", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate post rows", err)
	}
	return posts, nil
}

func (r *SQLRepository) FindBySlug(ctx context.Context, slug string) (*Post, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, r.db.Dialect().Rebind(getPostBySlugQuery), slug)
	post, err := scanPost(row)
	if err != nil {
		return nil, classify("find post by slug", err)
	}
	return post, nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*Post, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, r.db.Dialect().Rebind(getPostByIDQuery), id)
	post, err := scanPost(row)
	if err != nil {
		return nil, classify("find post by id", err)
	}
	return post, nil
}

func (r *SQLRepository) Update(ctx context.Context, id int64, title, slug, content string) error {
	res, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Dialect().Rebind(updatePostQuery), title, slug, content, id)
	if err != nil {
		return classify("update post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update post", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.Executor(ctx).ExecContext(ctx, r.db.Dialect().Rebind(deletePostQuery), id)
	if err != nil {
		return false, classify("delete post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete post", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.Executor(ctx).QueryRowContext(ctx, countPostsQuery).Scan(&n); err != nil {
		return 0, classify("count posts", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		post      Post
		createdAt database.Time
	)
	if err := row.Scan(&post.ID, &post.Title, &post.Slug, &post.Content, &createdAt); err != nil {
		return nil, err
	}
	post.CreatedAt = createdAt.Time
	return &post, nil
}

// classify maps a raw driver error onto the post error taxonomy.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrSlugExists
	default:
		return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
	}
}

func isClassified(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSlugExists) ||
		errors.Is(err, ErrStorageUnavailable)
}
