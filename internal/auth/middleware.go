package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/apierr"
)

const msgTokenRequired = "Token required or malformed"

// RequireLogin はセッションCookieを検証するミドルウェアを返します。
//   - Cookie が無い: 403
//   - 署名不正・形式不正・期限切れ: 401
//   - 有効: ユーザーIDを gin コンテキストとリクエストの context に設定して続行
func RequireLogin(tokens *TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CookieName)
		if err != nil || token == "" {
			apierr.Abort(c, apierr.New(apierr.KindUnauthenticated, msgTokenRequired), msgTokenRequired)
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			apierr.Abort(c, err, msgInvalidToken)
			return
		}

		c.Set(ContextUserKey, claims.ID)
		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), claims.ID))
		c.Next()
	}
}
