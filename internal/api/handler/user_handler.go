package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Nickname string `json:"nickname"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type userView struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	AboutMe  string `json:"about_me"`
	LastSeen string `json:"last_seen"`
}

// Login resolves an identity for a verified email, creating it on first
// contact, and issues a bearer token. The federated handshake that verified
// the email lives upstream of this endpoint.
// @Summary Login or register
// @Tags users
// @Accept json
// @Produce json
// @Param request body loginRequest true "login info"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, created, err := h.identity.LoginOrRegister(c.Request.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrNicknameTaken) || errors.Is(err, service.ErrEmailTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	token, err := middleware.IssueToken(h.cfg.Auth.JWTSecret, h.cfg.Auth.TokenTTL, user.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "created": created, "user": toUserView(user)})
}

// GetUser returns a public profile by nickname, with follower and following
// counts. The follower count reads the fans redundancy and can trail recent
// follows briefly.
// @Summary Get user profile
// @Tags users
// @Param nickname path string true "nickname"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/profiles/{nickname} [get]
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.identity.GetByNickname(c.Request.Context(), c.Param("nickname"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	followers, err := h.relations.FollowerCount(c.Request.Context(), user.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	following, err := h.relations.FollowingCount(c.Request.Context(), user.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"user": toUserView(user), "followers": followers, "following": following})
}

type editProfileRequest struct {
	Nickname string `json:"nickname" binding:"omitempty,nickname,max=64"`
	AboutMe  string `json:"about_me" binding:"max=140"`
}

// UpdateProfile edits the caller's nickname and blurb.
// @Summary Edit own profile
// @Tags users
// @Accept json
// @Produce json
// @Param request body editProfileRequest true "profile fields"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/me [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req editProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.identity.UpdateProfile(c.Request.Context(), middleware.CallerID(c), req.Nickname, req.AboutMe)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNicknameTaken):
			response.Conflict(c, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			response.NotFound(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Success(c, toUserView(user))
}

func toUserView(u *model.User) userView {
	return userView{
		ID:       u.ID,
		Nickname: u.Nickname,
		Email:    u.Email,
		AboutMe:  u.AboutMe,
		LastSeen: u.LastSeen.UTC().Format(time.RFC3339),
	}
}
