package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/api/middleware"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

// Timeline returns one page of the caller's followed-posts feed, newest
// first, with a has-next flag instead of a total count.
// @Summary Followed-posts feed
// @Tags timeline
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/timeline [get]
func (h *Handler) Timeline(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	posts, hasNext, err := h.timeline.FollowedPosts(c.Request.Context(), middleware.CallerID(c), page, pageSize)
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
