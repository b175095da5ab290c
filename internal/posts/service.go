package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jeremyjsx/quill/internal/events"
	"github.com/jeremyjsx/quill/internal/slug"
)

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// CreatePost stores a new post whose slug is derived from title. A slug that
// is already taken fails with ErrSlugExists; it is never rewritten.
func (s *Service) CreatePost(ctx context.Context, title, content string) (*Post, error) {
	title, problems := validateTitle(strings.TrimSpace(title), nil)
	if problems != nil {
		return nil, &ValidationError{Fields: problems}
	}

	post, err := s.repo.Create(ctx, title, content)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewPostEvent(events.TypePostCreated, post.ID, post.Slug, post.Title))
	return post, nil
}

func (s *Service) GetAllPosts(ctx context.Context) ([]*Post, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	return s.repo.FindBySlug(ctx, slug)
}

func (s *Service) GetPostForEdit(ctx context.Context, id int64) (*Post, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdatePost overwrites title, slug and content of post id and returns the
// stored result. The slug must already be in canonical form.
func (s *Service) UpdatePost(ctx context.Context, id int64, title, newSlug, content string) (*Post, error) {
	title, problems := validateTitle(strings.TrimSpace(title), nil)
	newSlug, problems = validateSlug(strings.TrimSpace(newSlug), problems)
	if problems != nil {
		return nil, &ValidationError{Fields: problems}
	}

	var post *Post
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, id, title, newSlug, content); err != nil {
			return err
		}
		var err error
		post, err = s.repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.NewPostEvent(events.TypePostUpdated, post.ID, post.Slug, post.Title))
	return post, nil
}

// DeletePost removes post id. Deleting a post that does not exist succeeds.
func (s *Service) DeletePost(ctx context.Context, id int64) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if removed {
		s.publish(ctx, events.NewPostEvent(events.TypePostDeleted, id, "", ""))
	}
	return nil
}

func (s *Service) GetDashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	summary := &DashboardSummary{}
	err := s.repo.RunInTransaction(ctx, func(ctx context.Context) error {
		total, err := s.repo.Count(ctx)
		if err != nil {
			return err
		}
		all, err := s.repo.ListAll(ctx)
		if err != nil {
			return err
		}
		summary.TotalPosts = total
		summary.Posts = all
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) publish(ctx context.Context, e events.PostEvent) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("publish post event failed",
			"type", e.Type,
			"post_id", e.Payload.PostID,
			"error", err,
		)
	}
}

func validateTitle(title string, problems map[string]string) (string, map[string]string) {
	switch {
	case title == "":
		problems = addProblem(problems, "title", "required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		problems = addProblem(problems, "title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	return title, problems
}

func validateSlug(s string, problems map[string]string) (string, map[string]string) {
	switch {
	case s == "":
		problems = addProblem(problems, "slug", "required")
	case len(s) > MaxTitleLength:
		problems = addProblem(problems, "slug", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	case !slug.Valid(s):
		problems = addProblem(problems, "slug", "must contain only lowercase letters, digits and single hyphens")
	}
	return s, problems
}

func addProblem(problems map[string]string, field, reason string) map[string]string {
	if problems == nil {
		problems = make(map[string]string)
	}
	problems[field] = reason
	return problems
}
