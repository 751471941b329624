package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateSessionCache drops all cached state for one session
func InvalidateSessionCache(ctx context.Context, cm *CacheManager, sessionID string) {
	SafeDelete(ctx, cm.Session,
		fmt.Sprintf("id:%s", sessionID),
		fmt.Sprintf("responses:%s", sessionID))
	SafeInvalidatePattern(ctx, cm.Session, "list:*")
}

// InvalidateStudentInsights drops cached difficulty and recommendation
// aggregates after a session completes for the student
func InvalidateStudentInsights(ctx context.Context, cm *CacheManager, studentID string) {
	SafeInvalidatePattern(ctx, cm.Insights, fmt.Sprintf("student:%s:*", studentID))
}

// InvalidateQuestionCache invalidates all question-related caches
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%d", questionID))
	SafeInvalidatePattern(ctx, cm.Question, "list:*")
	SafeInvalidatePattern(ctx, cm.Question, "pool:*")
}
