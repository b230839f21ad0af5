package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salakbook/internal/service/users"
	"salakbook/internal/session"
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	usersSvc *users.Service
	tokens   *users.TokenService
	sessions *session.Manager
	logger   *zap.Logger
}

// NewAuthHandler constructs the auth HTTP adapter.
func NewAuthHandler(usersSvc *users.Service, tokens *users.TokenService, sessions *session.Manager, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{usersSvc: usersSvc, tokens: tokens, sessions: sessions, logger: logger}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	role := req.Role
	if role == "" {
		role = "petani"
	}

	if err := h.usersSvc.Register(c.Request.Context(), req.Username, req.Password, role); err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already registered"})
			return
		}
		h.logger.Error("failed registering user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to register user"})
		return
	}

	c.Status(http.StatusCreated)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials, opens a session and returns a signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cred, err := h.usersSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
			return
		}
		h.logger.Error("failed authenticating user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to authenticate"})
		return
	}

	token, err := h.tokens.Generate(cred.Username, cred.Role)
	if err != nil {
		h.logger.Error("failed generating token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to issue token"})
		return
	}

	h.sessions.Start(cred.Username)
	c.JSON(http.StatusOK, gin.H{"token": token, "role": cred.Role})
}

// Logout tears the caller's session down.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := SessionFromContext(c)
	if sess != nil {
		h.sessions.End(sess.Username)
	}
	c.Status(http.StatusNoContent)
}
