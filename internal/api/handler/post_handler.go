package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

type createPostRequest struct {
	Body     string `json:"body" binding:"required,max=140"`
	Language string `json:"language" binding:"omitempty,max=5"`
}

type postView struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`
	Language  string `json:"language,omitempty"`
	CreatedAt string `json:"created_at"`
}

// CreatePost publishes a post by the caller.
// @Summary Publish a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body createPostRequest true "post body"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.publisher.Publish(c.Request.Context(), middleware.CallerID(c), req.Body, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, toPostView(post))
}

// ListUserPosts returns one page of a user's own posts, newest first.
// @Summary List a user's posts
// @Tags posts
// @Param user_id path string true "author id"
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{user_id}/posts [get]
func (h *Handler) ListUserPosts(c *gin.Context) {
	userID := c.Param("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	posts, hasNext, err := h.timeline.PostsByAuthor(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "has_next": hasNext, "posts": toPostViews(posts)})
}

func toPostView(p *model.Post) postView {
	return postView{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Body:      p.Body,
		Language:  p.Language,
		CreatedAt: p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func toPostViews(posts []*model.Post) []postView {
	out := make([]postView, len(posts))
	for i, p := range posts {
		out[i] = toPostView(p)
	}
	return out
}
