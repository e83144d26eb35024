package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lab_booking/internal/models"
	"lab_booking/internal/response"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Surname  string `json:"surname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Register godoc
// @Summary		Register
// @Description	Creates a user account with the regular user role
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		RegisterRequest				true	"User data"
// @Success		201		{object}	response.SuccessResponse
// @Failure		400		{object}	response.ErrorResponse		"VALIDATION_ERROR, EMAIL_EXISTS"
// @Failure		500		{object}	response.ErrorResponse		"PASSWORD_HASH_ERROR, DB_ERROR"
// @Router			/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "EMAIL_EXISTS",
			Message: "A user with this email already exists",
		})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "PASSWORD_HASH_ERROR",
			Message: "Failed to hash password",
		})
		return
	}

	user := models.User{
		Name:         req.Name,
		Surname:      req.Surname,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to create user",
		})
		return
	}

	c.JSON(http.StatusCreated, response.SuccessResponse{Message: "User registered"})
}

// Login godoc
// @Summary		Login
// @Description	Checks credentials and returns an access/refresh token pair
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		LoginRequest			true	"Credentials"
// @Success		200		{object}	response.TokenResponse
// @Failure		400		{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		401		{object}	response.ErrorResponse	"INVALID_CREDENTIALS"
// @Failure		500		{object}	response.ErrorResponse	"TOKEN_GENERATION_ERROR"
// @Router			/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).Where("email = ?", req.Email).First(&user).Error
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "Invalid email or password",
		})
		return
	}

	h.writeTokens(c, user)
}

// RefreshToken godoc
// @Summary		Refresh tokens
// @Description	Issues a new token pair for a valid refresh token
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			refresh_token	body		RefreshTokenRequest		true	"Refresh token"
// @Success		200				{object}	response.TokenResponse
// @Failure		400				{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		401				{object}	response.ErrorResponse	"INVALID_REFRESH_TOKEN, USER_NOT_FOUND"
// @Failure		500				{object}	response.ErrorResponse	"TOKEN_GENERATION_ERROR"
// @Router			/auth/refresh [post]
func (h *Handler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return
	}

	claims, err := h.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{
			Code:    "INVALID_REFRESH_TOKEN",
			Message: "Invalid or expired refresh token",
		})
		return
	}

	// The role is re-read so a promotion to admin takes effect on refresh.
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, response.ErrorResponse{
				Code:    "USER_NOT_FOUND",
				Message: "User not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Failed to load user",
		})
		return
	}

	h.writeTokens(c, user)
}

func (h *Handler) writeTokens(c *gin.Context, user models.User) {
	access, refresh, err := h.tokens.Pair(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "TOKEN_GENERATION_ERROR",
			Message: "Failed to generate tokens",
		})
		return
	}
	c.JSON(http.StatusOK, response.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	})
}
