package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

// ContextUserKey は、ハンドラー間で認証済みユーザーIDを共有するための gin のキーです。
const ContextUserKey = "auth.user"

type userIDContextKey struct{}

// WithUserID は ctx に認証済みユーザーIDを設定します。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext は ctx から認証済みユーザーIDを取り出します。
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(userIDContextKey{}).(string)
	return id, ok && id != ""
}

// UserID は RequireLogin が設定したユーザーIDを返します。
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}
