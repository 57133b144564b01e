// Package seed provides helpers to create demo data for development databases.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "inkwell-demo-pass"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	logger *slog.Logger
	hash   string
	// synthetic ID counter when running in DryRun mode
	nextID uint
	seq    int
}

// NewFactory creates a Factory bound to db. The password hash is computed once per factory.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	opts = opts.withDefaults()
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		logger: opts.Logger,
		hash:   string(hash),
		nextID: 1000,
	}, nil
}

func (f *Factory) next() int {
	f.seq++
	return f.seq
}

func (f *Factory) fakeID() uint {
	f.nextID++
	return f.nextID
}

// CreateUser persists a verified, active user together with its profile.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User, *models.Profile)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		Email:      models.NormalizeEmail(fmt.Sprintf("%s.%s%d@example.com", first, last, f.next())),
		Password:   f.hash,
		IsActive:   true,
		IsVerified: true,
	}
	profile := &models.Profile{
		FirstName: first,
		LastName:  last,
		Bio:       f.faker.Sentence(12),
	}
	for _, override := range overrides {
		override(user, profile)
	}

	if f.opts.DryRun {
		user.ID = f.fakeID()
		profile.ID = f.fakeID()
		profile.UserID = user.ID
		user.Profile = profile
		f.logger.Debug("[dry-run] create user", slog.String("email", user.Email))
		return user, nil
	}

	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(user).Error; err != nil {
			return err
		}
		// Zero-valued booleans with a column default are skipped on insert.
		if err := tx.Model(user).Updates(map[string]any{
			"is_staff":     user.IsStaff,
			"is_superuser": user.IsSuperuser,
		}).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Email, err)
	}
	user.Profile = profile
	return user, nil
}

// CreateTag persists a tag named after a random word.
func (f *Factory) CreateTag(ctx context.Context) (*models.Tag, error) {
	name := strings.ToLower(f.faker.HipsterWord())
	tag := &models.Tag{
		Name: name,
		Slug: validation.SuffixSlug(validation.Slugify(name), f.next()),
	}
	if f.opts.DryRun {
		tag.ID = f.fakeID()
		return tag, nil
	}
	if err := f.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, fmt.Errorf("create tag %s: %w", tag.Slug, err)
	}
	return tag, nil
}

// BuildPost constructs a post for author without persisting it.
func (f *Factory) BuildPost(author *models.Profile, overrides ...func(*models.Post)) *models.Post {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), ".")
	post := &models.Post{
		Title:    title,
		Slug:     validation.SuffixSlug(validation.Slugify(title), f.next()),
		Content:  f.markdownBody(),
		Status:   models.StatusPublished,
		AuthorID: author.ID,
	}

	maxDays := f.opts.MaxDays
	daysBack := f.faker.Number(0, maxDays-1)
	hoursBack := f.faker.Number(0, 23)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// markdownBody renders a few paragraphs with a heading and a list.
func (f *Factory) markdownBody() string {
	var b strings.Builder
	b.WriteString(f.faker.Paragraph(1, 3, 12, " "))
	b.WriteString("\n\n## ")
	b.WriteString(strings.TrimSuffix(f.faker.Sentence(4), "."))
	b.WriteString("\n\n")
	for i := 0; i < f.faker.Number(2, 4); i++ {
		b.WriteString("- ")
		b.WriteString(f.faker.Sentence(6))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(f.faker.Paragraph(1, 4, 14, " "))
	return b.String()
}

// CreatePostsBatch persists posts and their tag links.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			p.ID = f.fakeID()
		}
		f.logger.Debug("[dry-run] create posts", slog.Int("count", len(posts)))
		return nil
	}
	if err := f.db.WithContext(ctx).Omit("Author", "Category").Create(&posts).Error; err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	return nil
}

// CreateComment persists a comment on post by author.
func (f *Factory) CreateComment(ctx context.Context, post *models.Post, author *models.Profile, approved bool) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:     post.ID,
		AuthorID:   author.ID,
		Content:    f.faker.Paragraph(1, 2, 10, " "),
		IsApproved: approved,
		CreatedAt:  post.CreatedAt.Add(time.Duration(f.faker.Number(1, 72)) * time.Hour),
	}
	comment.UpdatedAt = comment.CreatedAt
	if f.opts.DryRun {
		comment.ID = f.fakeID()
		return comment, nil
	}
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Post", "Author").Create(comment).Error; err != nil {
			return err
		}
		if !approved {
			return tx.Model(comment).Update("is_approved", false).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// pick returns a random element of items.
func pick[T any](f *Factory, items []T) T {
	return items[f.faker.Number(0, len(items)-1)]
}

// spread reports whether item i of a run falls on the given ratio, spacing hits evenly.
func spread(i int, ratio float64) bool {
	if ratio <= 0 {
		return false
	}
	return int(float64(i+1)*ratio) > int(float64(i)*ratio)
}
