package server

import (
	"log/slog"
	"time"

	"inkwell/internal/featureflags"
	"inkwell/internal/markdown"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

type categoryResponse struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	URL   string `json:"url"`
}

type tagResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

type postResponse struct {
	ID           uint              `json:"id"`
	Title        string            `json:"title"`
	Author       string            `json:"author"`
	Slug         string            `json:"slug"`
	Category     *categoryResponse `json:"category"`
	CategoryLink *string           `json:"category_link"`
	Content      string            `json:"content"`
	ContentHTML  string            `json:"content_html,omitempty"`
	Status       string            `json:"status"`
	Image        string            `json:"image"`
	Tags         []string          `json:"tags"`
	CreatedDate  time.Time         `json:"created_date"`
	UpdatedDate  time.Time         `json:"updated_date"`
}

type commentResponse struct {
	ID          uint      `json:"id"`
	Post        uint      `json:"post"`
	PostTitle   string    `json:"post_title"`
	Content     string    `json:"content"`
	AuthorEmail string    `json:"author_email"`
	CreatedDate time.Time `json:"created_date"`
	IsApproved  bool      `json:"is_approved"`
}

type profileResponse struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Bio         string    `json:"bio"`
	Image       string    `json:"image"`
	CreatedDate time.Time `json:"created_date"`
	UpdatedDate time.Time `json:"updated_date"`
}

type userResponse struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	IsStaff     bool       `json:"is_staff"`
	IsActive    bool       `json:"is_active"`
	IsSuperuser bool       `json:"is_superuser"`
	IsVerified  bool       `json:"is_verified"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedDate time.Time  `json:"created_date"`
}

func categoryURL(c *fiber.Ctx, slug string) string {
	return absoluteURL(c, "/api/v1/blog/category/"+slug)
}

func tagURL(c *fiber.Ctx, slug string) string {
	return absoluteURL(c, "/api/v1/blog/tags/"+slug)
}

func renderCategory(c *fiber.Ctx, category *models.Category) categoryResponse {
	return categoryResponse{
		ID:    category.ID,
		Title: category.Title,
		Slug:  category.Slug,
		URL:   categoryURL(c, category.Slug),
	}
}

func renderTag(c *fiber.Ctx, tag *models.Tag) tagResponse {
	return tagResponse{Name: tag.Name, Slug: tag.Slug, URL: tagURL(c, tag.Slug)}
}

// renderPost serializes a post. content_html is included when the markdown_html flag
// is on for the caller.
func (s *Server) renderPost(c *fiber.Ctx, post *models.Post) postResponse {
	resp := postResponse{
		ID:          post.ID,
		Title:       post.Title,
		Author:      post.Author.Email(),
		Slug:        post.Slug,
		Content:     post.Content,
		Status:      post.Status,
		Image:       post.Image,
		Tags:        make([]string, 0, len(post.Tags)),
		CreatedDate: post.CreatedAt,
		UpdatedDate: post.UpdatedAt,
	}
	if post.Category != nil {
		category := renderCategory(c, post.Category)
		resp.Category = &category
		resp.CategoryLink = &category.URL
	}
	for _, t := range post.Tags {
		resp.Tags = append(resp.Tags, t.Slug)
	}

	if s.featureFlags.Enabled(featureflags.MarkdownHTML, callerID(c)) {
		html, err := markdown.Render(post.Content)
		if err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "markdown render failed",
				slog.String("slug", post.Slug), slog.String("error", err.Error()))
		} else {
			resp.ContentHTML = html
		}
	}
	return resp
}

func renderComment(comment *models.Comment) commentResponse {
	resp := commentResponse{
		ID:          comment.ID,
		Post:        comment.PostID,
		Content:     comment.Content,
		AuthorEmail: comment.Author.Email(),
		CreatedDate: comment.CreatedAt,
		IsApproved:  comment.IsApproved,
	}
	if comment.Post != nil {
		resp.PostTitle = comment.Post.Title
	}
	return resp
}

func renderProfile(profile *models.Profile) profileResponse {
	return profileResponse{
		ID:          profile.ID,
		Email:       profile.Email(),
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Bio:         profile.Bio,
		Image:       profile.Image,
		CreatedDate: profile.CreatedAt,
		UpdatedDate: profile.UpdatedAt,
	}
}

func renderUser(user *models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		IsStaff:     user.IsStaff,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		IsVerified:  user.IsVerified,
		LastLogin:   user.LastLogin,
		CreatedDate: user.CreatedAt,
	}
}
