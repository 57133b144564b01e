package seed

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	// DryRun builds entities with synthetic IDs and writes nothing.
	DryRun bool
	// MaxDays bounds how far back post dates are spread.
	MaxDays int
	// RandomSeed makes runs reproducible when non-zero.
	RandomSeed int64
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxDays <= 0 {
		o.MaxDays = 90
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Summary counts what a run created.
type Summary struct {
	Users      int
	Staff      int
	Categories int
	Tags       int
	Posts      int
	Drafts     int
	Comments   int
	Pending    int
}

// Seeder populates a database from presets.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	opts = opts.withDefaults()
	factory, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: factory, opts: opts}, nil
}

// ClearAll removes every blog and account row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if s.opts.DryRun {
		s.opts.Logger.Info("[dry-run] skipping cleanup")
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_tags").Error; err != nil {
			return fmt.Errorf("clear post_tags: %w", err)
		}
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{
			&models.Comment{}, &models.Post{}, &models.Tag{}, &models.Category{},
			&models.Profile{}, &models.User{},
		} {
			if err := all.Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run creates the dataset described by p.
func (s *Seeder) Run(ctx context.Context, p Preset) (*Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := s.opts.Logger.With(slog.String("preset", p.Name), slog.Bool("dry_run", s.opts.DryRun))
	log.Info("seeding started",
		slog.Int("users", p.Users),
		slog.Int("posts_per_user", p.PostsPerUser),
		slog.Int("comments_per_post", p.CommentsPerPost),
	)
	sum := &Summary{}

	var categories []models.Category
	if s.opts.DryRun {
		categories = BuiltInCategories
	} else {
		var err error
		if categories, err = Categories(ctx, s.db); err != nil {
			return nil, fmt.Errorf("seed categories: %w", err)
		}
	}
	sum.Categories = len(categories)

	tags := make([]models.Tag, 0, p.Tags)
	for i := 0; i < p.Tags; i++ {
		tag, err := s.factory.CreateTag(ctx)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	sum.Tags = len(tags)

	users := make([]*models.User, 0, p.Users)
	for i := 0; i < p.Users; i++ {
		staff := i < p.Staff
		user, err := s.factory.CreateUser(ctx, func(u *models.User, _ *models.Profile) {
			u.IsStaff = staff
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
		if staff {
			sum.Staff++
		}
	}
	sum.Users = len(users)
	log.Info("users created", slog.Int("count", sum.Users), slog.Int("staff", sum.Staff))

	var posts []*models.Post
	n := 0
	for _, user := range users {
		for j := 0; j < p.PostsPerUser; j++ {
			draft := spread(n, p.DraftRatio)
			n++
			post := s.factory.BuildPost(user.Profile, func(post *models.Post) {
				if draft {
					post.Status = models.StatusDraft
				}
				category := pick(s.factory, categories)
				post.CategoryID = &category.ID
				post.Tags = s.pickTags(tags)
			})
			posts = append(posts, post)
			if draft {
				sum.Drafts++
			}
		}
	}
	if err := s.factory.CreatePostsBatch(ctx, posts); err != nil {
		return nil, err
	}
	sum.Posts = len(posts)
	log.Info("posts created", slog.Int("count", sum.Posts), slog.Int("drafts", sum.Drafts))

	c := 0
	for _, post := range posts {
		if post.IsDraft() {
			continue
		}
		for j := 0; j < p.CommentsPerPost; j++ {
			approved := spread(c, p.ApprovedRatio)
			c++
			author := pick(s.factory, users)
			if _, err := s.factory.CreateComment(ctx, post, author.Profile, approved); err != nil {
				return nil, err
			}
			sum.Comments++
			if !approved {
				sum.Pending++
			}
		}
	}
	log.Info("seeding finished", slog.Int("comments", sum.Comments), slog.Int("pending", sum.Pending))
	return sum, nil
}

// pickTags returns up to three distinct tags.
func (s *Seeder) pickTags(tags []models.Tag) []models.Tag {
	if len(tags) == 0 {
		return nil
	}
	want := s.factory.faker.Number(0, 3)
	seen := make(map[uint]bool, want)
	var out []models.Tag
	for i := 0; i < want; i++ {
		tag := pick(s.factory, tags)
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		out = append(out, tag)
	}
	return out
}
