package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	RecipeKeyPrefix    = "recipe:%d"
	RecipeBrowsePrefix = "recipes:browse:%s"
)

const (
	UserTTL         = 5 * time.Minute
	RecipeTTL       = 10 * time.Minute
	RecipeBrowseTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func RecipeKey(recipeID uint) string {
	return fmt.Sprintf(RecipeKeyPrefix, recipeID)
}

func RecipeBrowseKey(page string) string {
	return fmt.Sprintf(RecipeBrowsePrefix, page)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateRecipe(ctx context.Context, recipeID uint) {
	Invalidate(ctx, RecipeKey(recipeID))
}

// InvalidatePrefix removes every key matching the pattern. Listing caches
// encode pagination in their keys, so a single Del cannot clear them.
func InvalidatePrefix(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}

func InvalidateRecipeBrowse(ctx context.Context) {
	InvalidatePrefix(ctx, fmt.Sprintf(RecipeBrowsePrefix, "*"))
}
