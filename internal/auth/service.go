// Package auth はユーザー登録・ログインと、セッショントークンによる認証を提供します。
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yourusername/task-manager/internal/apierr"
	"github.com/yourusername/task-manager/internal/models"
	"github.com/yourusername/task-manager/internal/storage"
)

const (
	msgFieldsRequired     = "All fields are required"
	msgInvalidEmail       = "Email must have a valid format"
	msgEmailTaken         = "Email is already registered"
	msgInvalidCredentials = "Invalid credentials. Please try again!"
)

// Session は登録・ログイン成功時の結果です。
type Session struct {
	User  models.PublicUser
	Token string
}

// Service は登録とログインを担います。
type Service struct {
	users  storage.UserStore
	hasher Hasher
	tokens *TokenCodec
	newID  func() string

	decoyOnce sync.Once
	decoy     string
}

// NewService は Service を作成します。
func NewService(users storage.UserStore, hasher Hasher, tokens *TokenCodec) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		newID:  uuid.NewString,
	}
}

// Register はユーザーを作成し、セッショントークンを発行します。
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	if name == "" || email == "" || password == "" {
		return nil, apierr.New(apierr.KindValidation, msgFieldsRequired)
	}
	// "@" がちょうど1つであることだけを確認する（RFC 準拠の検証はしない）
	if len(strings.Split(email, "@")) != 2 {
		return nil, apierr.New(apierr.KindValidation, msgInvalidEmail)
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apierr.New(apierr.KindDuplicateEmail, msgEmailTaken)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: digest,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// 同時登録で一意制約に当たった場合
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apierr.New(apierr.KindDuplicateEmail, msgEmailTaken)
		}
		return nil, err
	}

	return s.issue(user)
}

// Login はメールアドレスとパスワードを照合し、セッショントークンを発行します。
// メールアドレスが存在しない場合とパスワード不一致の場合は同じエラーを返します。
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// 存在しないユーザーでも照合と同程度の時間をかける
			s.hasher.Verify(password, s.decoyDigest())
			return nil, apierr.New(apierr.KindInvalidCredentials, msgInvalidCredentials)
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apierr.New(apierr.KindInvalidCredentials, msgInvalidCredentials)
	}

	return s.issue(user)
}

// Tokens はトークンの検証に使う TokenCodec を返します。
func (s *Service) Tokens() *TokenCodec {
	return s.tokens
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, err := s.tokens.Issue(Claims{ID: user.ID, Name: user.Name, Email: user.Email})
	if err != nil {
		return nil, err
	}
	return &Session{User: user.Public(), Token: token}, nil
}

func (s *Service) decoyDigest() string {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.decoy = digest
		}
	})
	return s.decoy
}
