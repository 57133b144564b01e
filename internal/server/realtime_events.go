package server

import (
	"context"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
)

// Websocket event types.
const (
	eventPostPublished   = "post.published"
	eventCommentPending  = "comment.pending"
	eventCommentCreated  = "comment.created"
	eventCommentApproved = "comment.approved"
)

type postEvent struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Slug   string `json:"slug"`
	Author string `json:"author"`
}

type commentEvent struct {
	ID          uint   `json:"id"`
	Post        uint   `json:"post"`
	PostTitle   string `json:"post_title"`
	PostSlug    string `json:"post_slug"`
	AuthorEmail string `json:"author_email"`
	IsApproved  bool   `json:"is_approved"`
}

// realtimeEnabled evaluates the realtime_notifications flag for the user causing an event.
func (s *Server) realtimeEnabled(userID uint) bool {
	return s.featureFlags.Enabled(featureflags.RealtimeNotifications, userID)
}

func newCommentEvent(comment *models.Comment) commentEvent {
	ev := commentEvent{
		ID:          comment.ID,
		Post:        comment.PostID,
		AuthorEmail: comment.Author.Email(),
		IsApproved:  comment.IsApproved,
	}
	if comment.Post != nil {
		ev.PostTitle = comment.Post.Title
		ev.PostSlug = comment.Post.Slug
	}
	return ev
}

// publishPostPublished announces a newly published post to every connected client.
func (s *Server) publishPostPublished(ctx context.Context, post *models.Post) {
	var authorUserID uint
	if post.Author != nil {
		authorUserID = post.Author.UserID
	}
	if !s.realtimeEnabled(authorUserID) {
		return
	}
	s.events.Broadcast(ctx, eventPostPublished, postEvent{
		ID:     post.ID,
		Title:  post.Title,
		Slug:   post.Slug,
		Author: post.Author.Email(),
	})
}

// publishCommentCreated tells the post author about a new comment and, when the
// comment awaits moderation, every staff member.
func (s *Server) publishCommentCreated(ctx context.Context, actorID uint, comment *models.Comment) {
	if !s.realtimeEnabled(actorID) {
		return
	}
	ev := newCommentEvent(comment)
	if !comment.IsApproved {
		s.events.ToStaff(ctx, eventCommentPending, ev)
	}
	if comment.Post != nil && comment.Post.Author != nil && comment.Post.Author.UserID != actorID {
		s.events.ToUser(ctx, comment.Post.Author.UserID, eventCommentCreated, ev)
	}
}

// publishCommentApproved tells the comment author their comment is visible.
func (s *Server) publishCommentApproved(ctx context.Context, actorID uint, comment *models.Comment) {
	if comment.Author == nil || !s.realtimeEnabled(actorID) {
		return
	}
	s.events.ToUser(ctx, comment.Author.UserID, eventCommentApproved, newCommentEvent(comment))
}
