package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/apierr"
	"github.com/yourusername/task-manager/internal/logging"
)

// CookieName はセッショントークンを保持する Cookie 名です。
const CookieName = "access_token"

const (
	msgInvalidBody     = "Invalid request body"
	msgRegisterFailed  = "Error creating user"
	msgLoginFailed     = "Error logging in"
	msgTooManyAttempts = "Too many login attempts. Please try again later"
	msgRegistered      = "User created successfully"
	msgLoggedIn        = "Login successful"
	msgLoggedOut       = "Logged out successfully"
)

// HandlerOptions は Handler の設定です。
type HandlerOptions struct {
	// Production が true の場合、Cookie を Secure かつ SameSite=None で発行します。
	Production bool
	Limiter    *LoginLimiter
	Logger     logging.Logger
}

// Handler は /api/auth/* のハンドラーをまとめた構造体です。
type Handler struct {
	svc        *Service
	production bool
	limiter    *LoginLimiter
	logger     logging.Logger
}

// NewHandler は Handler を作成します。
func NewHandler(svc *Service, opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		svc:        svc,
		production: opts.Production,
		limiter:    opts.Limiter,
		logger:     logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register は POST /api/auth/register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	session, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if apierr.Respond(c, err, msgRegisterFailed) {
			h.logger.Error(c.Request.Context(), "register failed", "error", err)
		}
		return
	}

	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusCreated, gin.H{
		"message": msgRegistered,
		"user":    session.User,
		"token":   session.Token,
	})
}

// Login は POST /api/auth/login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	ip := c.ClientIP()
	if retryAfter := h.limiter.RetryAfter(ip); retryAfter > 0 {
		// Retry-After は秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": msgTooManyAttempts})
		return
	}

	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if apierr.Is(err, apierr.KindInvalidCredentials) {
			h.limiter.RecordFailure(ip)
		}
		if apierr.Respond(c, err, msgLoginFailed) {
			h.logger.Error(c.Request.Context(), "login failed", "error", err)
		}
		return
	}

	h.limiter.Reset(ip)
	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, gin.H{
		"message": msgLoggedIn,
		"user":    session.User,
		"token":   session.Token,
	})
}

// Logout は POST /api/auth/logout のハンドラーです。
// Cookie を削除するだけで、トークン自体は有効期限まで有効なままです。
func (h *Handler) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.production,
		// 発行時 (Lax/None) とは異なり Strict で削除する
		SameSite: http.SameSiteStrictMode,
	})
	c.JSON(http.StatusOK, gin.H{"message": msgLoggedOut})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.production,
		SameSite: sameSite,
	})
}
