package posts

import "time"

// MaxTitleLength bounds titles and slugs to what the posts table stores.
const MaxTitleLength = 255

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardSummary is the admin overview: every post plus how many there are.
type DashboardSummary struct {
	TotalPosts int64   `json:"total_posts"`
	Posts      []*Post `json:"posts"`
}
