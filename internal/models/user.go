// Package models はストアとサービス間で受け渡すレコード型を定義します。
package models

import "time"

// User は登録済みユーザーです。PasswordHash は外部へシリアライズしません。
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// PublicUser はレスポンスに含める公開情報です。
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Public はパスワードハッシュを除いた公開情報を返します。
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
