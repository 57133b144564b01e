package seed

import (
	"context"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInCategories are always present after seeding.
var BuiltInCategories = []models.Category{
	{Title: "Engineering", Slug: "engineering"},
	{Title: "Design", Slug: "design"},
	{Title: "Product", Slug: "product"},
	{Title: "Tutorials", Slug: "tutorials"},
	{Title: "Culture", Slug: "culture"},
	{Title: "Announcements", Slug: "announcements"},
}

// Categories upserts the built-in categories by slug and returns them with IDs.
func Categories(ctx context.Context, db *gorm.DB) ([]models.Category, error) {
	out := make([]models.Category, 0, len(BuiltInCategories))
	for _, item := range BuiltInCategories {
		category := models.Category{Title: item.Title, Slug: item.Slug}
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "slug"}},
				DoUpdates: clause.AssignmentColumns([]string{"title"}),
			}).Create(&category).Error; err != nil {
				return err
			}
			if category.ID == 0 {
				return tx.Where("slug = ?", item.Slug).First(&category).Error
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, nil
}
