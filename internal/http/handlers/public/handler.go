package public

import (
	"github.com/upi-next/internal/http/handlers/shared"
	"github.com/upi-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 公开接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, key string, err error) {
	shared.RespondError(c, code, key, err)
}
