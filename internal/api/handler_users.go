package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"longmail-backend/internal/auth"
	"longmail-backend/internal/model"
	"longmail-backend/internal/store"
)

type signupRequest struct {
	Username string `json:"username" binding:"required,max=128"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"required"`
}

// Signup registers a new user.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		badRequest(c, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		badRequest(c, errors.New("username is empty"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	user := &model.User{Base: model.Base{IsActive: true}, Username: username, PasswordHash: hash, Role: role}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.store.FindUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		err = auth.ErrInvalidCredentials
	}
	if err == nil && !user.IsActive {
		err = auth.ErrInvalidCredentials
	}
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, req.Password)
	}
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		abortWithError(c, err)
		return
	}

	token, err := h.issuer.IssueToken(user)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// Me returns the calling user.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.store.FindUserByID(c.Request.Context(), caller(c).UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
