package ranking

import (
	"fmt"

	"github.com/baechuer/curation-service/internal/domain"
)

const scopeGlobal = "global"

func scopeOf(categoryID string) string {
	if categoryID == "" {
		return scopeGlobal
	}
	return categoryID
}

// ranking:{profile}:{scope}:{range}:{limit}
func cacheKeyRanking(p Profile, categoryID string, r domain.Range, limit int) string {
	return fmt.Sprintf("ranking:%s:%s:%s:%d", p, scopeOf(categoryID), r, limit)
}

func cacheKeyStale(key string) string {
	return key + ":stale"
}

// Trailing colon keeps "cat-1" from matching "cat-10".
func cacheKeyScopePrefix(p Profile, categoryID string) string {
	return fmt.Sprintf("ranking:%s:%s:", p, scopeOf(categoryID))
}
