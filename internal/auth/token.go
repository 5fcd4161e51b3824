package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourusername/task-manager/internal/apierr"
)

// SessionTTL はセッショントークンの有効期間です。
const SessionTTL = 24 * time.Hour

const msgInvalidToken = "Invalid authentication token"

// Claims はセッショントークンに埋め込むユーザー情報です。
type Claims struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec は HS256 でセッショントークンを署名・検証します。
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec は TokenCodec を作成します。secret が空の場合はエラーです。
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		ttl = SessionTTL
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue は id / name / email を含むトークンを発行します。
func (c *TokenCodec) Issue(claims Claims) (string, error) {
	now := c.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify は署名と有効期限を検証して Claims を返します。
// 期限切れは apierr.KindExpired、それ以外の失敗はすべて apierr.KindInvalidToken です。
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierr.Wrap(apierr.KindExpired, msgInvalidToken, err)
		}
		return nil, apierr.Wrap(apierr.KindInvalidToken, msgInvalidToken, err)
	}
	if !parsed.Valid || claims.ID == "" {
		return nil, apierr.New(apierr.KindInvalidToken, msgInvalidToken)
	}
	return claims, nil
}
