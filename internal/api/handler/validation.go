package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/microblog/internal/service"
)

// nickname passes only when the value survives sanitization unchanged, so
// profile edits reject bad characters instead of silently rewriting them.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return service.SanitizeNickname(s) == s
		})
	}
}
