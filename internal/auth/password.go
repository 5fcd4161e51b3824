package auth

import "golang.org/x/crypto/bcrypt"

// PasswordCost は bcrypt のコスト係数です。
const PasswordCost = 10

// Hasher はパスワードの一方向ハッシュと照合を行います。
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// BcryptHasher は bcrypt による Hasher 実装です。
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher は PasswordCost を使う Hasher を返します。
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: PasswordCost}
}

// Hash はソルト付きのダイジェストを返します。同じ入力でも毎回異なる値になります。
func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = PasswordCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify は password が digest に一致するかを返します。digest が不正な形式なら false です。
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
