package seller

import "github.com/kalakart-next/internal/provider"

// Handler 卖家侧接口处理器入口
// 说明：该处理器仅用于卖家实名、银行账户与提现 API。
type Handler struct {
	*provider.Container
}

// New 创建卖家侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
