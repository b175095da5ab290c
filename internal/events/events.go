package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypePostCreated = "post.created"
	TypePostUpdated = "post.updated"
	TypePostDeleted = "post.deleted"
)

type PostPayload struct {
	PostID int64  `json:"post_id"`
	Slug   string `json:"slug,omitempty"`
	Title  string `json:"title,omitempty"`
}

// PostEvent announces a change in a post's lifecycle.
type PostEvent struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   PostPayload `json:"payload"`
}

func NewPostEvent(eventType string, postID int64, slug, title string) PostEvent {
	return PostEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload: PostPayload{
			PostID: postID,
			Slug:   slug,
			Title:  title,
		},
	}
}

// Known reports whether t is one of the post lifecycle event types.
func Known(t string) bool {
	switch t {
	case TypePostCreated, TypePostUpdated, TypePostDeleted:
		return true
	}
	return false
}

// Decode parses a delivery body produced by Publish.
func Decode(body []byte) (PostEvent, error) {
	var e PostEvent
	if err := json.Unmarshal(body, &e); err != nil {
		return PostEvent{}, fmt.Errorf("decode post event: %w", err)
	}
	if e.Type == "" {
		return PostEvent{}, fmt.Errorf("decode post event: missing type")
	}
	return e, nil
}
