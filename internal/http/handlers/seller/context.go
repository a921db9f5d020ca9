package seller

import (
	handlershared "github.com/kalakart-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getSellerID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "user_id", "error.seller_id_invalid", "error.seller_id_type_invalid")
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}
