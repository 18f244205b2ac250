package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"novelhub/pkg/utils"
)

// Handler serves admin login and API key retrieval. There is a single admin
// account configured from the environment; no user table.
type Handler struct {
	Cfg    utils.AdminConfig
	Tokens TokenService
	Keys   *KeyService
}

func NewHandler(cfg utils.AdminConfig, tokens TokenService, keys *KeyService) *Handler {
	return &Handler{Cfg: cfg, Tokens: tokens, Keys: keys}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)
}

// RegisterAdminRoutes mounts routes behind AdminMiddleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/key", h.getKey)
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if h.Cfg.PasswordHash == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin login disabled"})
		return
	}
	if req.Username != h.Cfg.Username {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.Cfg.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, exp, err := h.Tokens.Sign(req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": exp,
	})
}

func (h *Handler) getKey(c *gin.Context) {
	key, err := h.Keys.Current(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "key lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"api_key": key})
}
