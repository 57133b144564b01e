package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	PostSlugKeyPrefix = "post:slug:%s"
	CategoryKeyPrefix = "category:%s"
	TagKeyPrefix      = "tag:%s"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	TaxonomyTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// PostSlugKey caches published post detail for anonymous readers.
func PostSlugKey(slug string) string {
	return fmt.Sprintf(PostSlugKeyPrefix, slug)
}

func CategoryKey(slug string) string {
	return fmt.Sprintf(CategoryKeyPrefix, slug)
}

func TagKey(slug string) string {
	return fmt.Sprintf(TagKeyPrefix, slug)
}

// Invalidate deletes the given keys. It is a no-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		keys = append(keys, PostSlugKey(s))
	}
	Invalidate(ctx, keys...)
}

func InvalidateCategory(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		keys = append(keys, CategoryKey(s))
	}
	Invalidate(ctx, keys...)
}

func InvalidateTag(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		keys = append(keys, TagKey(s))
	}
	Invalidate(ctx, keys...)
}
