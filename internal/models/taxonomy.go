package models

// Category groups posts. Slug is unique and derived from the title when blank.
type Category struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Title string `gorm:"size:100;not null" json:"title"`
	Slug  string `gorm:"uniqueIndex;size:120;not null" json:"slug"`
}

// Tag labels posts. Slug is unique and derived from the name when blank.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:50;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;size:70;not null" json:"slug"`
}
