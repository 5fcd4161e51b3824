// Package apierr は API 全体で共有するエラー分類と、HTTP レスポンスへの変換を提供します。
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind はエラーの分類です。
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindDuplicateEmail     Kind = "DUPLICATE_EMAIL"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindExpired            Kind = "EXPIRED"
	KindNotFound           Kind = "NOT_FOUND"
	KindTooManyAttempts    Kind = "TOO_MANY_ATTEMPTS"
	KindInternal           Kind = "INTERNAL"
)

// Error はクライアントへ返すメッセージを持つエラーです。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New は Error を作成します。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は原因となるエラーを保持した Error を作成します。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf は err の分類を返します。Error でない場合は KindInternal です。
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// Is は err が指定した分類かを判定します。
func Is(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// Status は分類に対応する HTTP ステータスを返します。
func Status(kind Kind) int {
	switch kind {
	case KindValidation, KindDuplicateEmail:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindInvalidToken, KindExpired:
		return http.StatusUnauthorized
	case KindUnauthenticated:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyAttempts:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Respond は err を {"error": message} 形式のレスポンスに変換します。
// 分類できないエラーは 500 として fallback メッセージを返し、true を返します（呼び出し側でログ出力する想定）。
func Respond(c *gin.Context, err error, fallback string) (unexpected bool) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr) && apiErr.Kind != KindInternal:
		c.JSON(Status(apiErr.Kind), gin.H{"error": apiErr.Message})
		return false
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return true
	}
}

// Abort はミドルウェア用に Respond と同じ変換を行い、後続ハンドラーを止めます。
func Abort(c *gin.Context, err error, fallback string) {
	kind := KindOf(err)
	message := fallback
	var apiErr *Error
	if errors.As(err, &apiErr) && kind != KindInternal {
		message = apiErr.Message
	}
	c.AbortWithStatusJSON(Status(kind), gin.H{"error": message})
}
