package public

import "github.com/kalakart-next/internal/provider"

// Handler 买家侧与回调接口处理器入口
// 说明：该处理器用于买家支付 API 与网关回跳回调。
type Handler struct {
	*provider.Container
}

// New 创建买家侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
