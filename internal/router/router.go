package router

import (
	"sort"
	"strings"

	"github.com/kalakart-next/internal/authz"
	"github.com/kalakart-next/internal/config"
	"github.com/kalakart-next/internal/constants"
	adminhandlers "github.com/kalakart-next/internal/http/handlers/admin"
	publichandlers "github.com/kalakart-next/internal/http/handlers/public"
	sellerhandlers "github.com/kalakart-next/internal/http/handlers/seller"
	"github.com/kalakart-next/internal/http/response"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按买家/卖家/后台分组）
	publicHandler := publichandlers.New(c)
	sellerHandler := sellerhandlers.New(c)
	adminHandler := adminhandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 支付网关回调（无需鉴权，签名校验在服务层完成）
		apiV1.POST("/payments/callback", publicHandler.PaymentCallback)

		// 买家接口（需鉴权）
		customer := apiV1.Group("")
		customer.Use(JWTAuthMiddleware(cfg.JWT.SecretKey), RequireRole(constants.RoleCustomer))
		{
			customer.POST("/payments", publicHandler.CreatePayment)
			customer.GET("/payments/:id", publicHandler.GetPayment)
			customer.POST("/payments/:id/gateway-order", publicHandler.RetryPaymentGatewayOrder)
		}

		// 卖家接口（需鉴权）
		seller := apiV1.Group("/seller")
		seller.Use(JWTAuthMiddleware(cfg.JWT.SecretKey), RequireRole(constants.RoleSeller))
		{
			seller.POST("/kyc", sellerHandler.SubmitKyc)
			seller.GET("/kyc", sellerHandler.GetMyKyc)
			seller.GET("/linked-account", sellerHandler.GetMyLinkedAccount)

			seller.POST("/bank-accounts", sellerHandler.AddBankAccount)
			seller.GET("/bank-accounts", sellerHandler.ListBankAccounts)
			seller.POST("/bank-accounts/:id/primary", sellerHandler.SetPrimaryBankAccount)
			seller.DELETE("/bank-accounts/:id", sellerHandler.DeactivateBankAccount)

			seller.GET("/balance", sellerHandler.GetBalance)
			seller.POST("/payouts", sellerHandler.RequestPayout)
			seller.GET("/payouts", sellerHandler.ListMyPayouts)
			seller.GET("/payouts/:id", sellerHandler.GetMyPayout)
			seller.GET("/splits", sellerHandler.ListMySplits)
		}

		// 管理端接口（JWT + RBAC）
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey), AdminRBACMiddleware(c.AuthzService))
		{
			// 实名审核
			admin.GET("/kyc", adminHandler.ListKyc)
			admin.POST("/kyc/:id/review", adminHandler.ReviewKyc)

			// 支付与分账
			admin.GET("/payments", adminHandler.ListPayments)
			admin.GET("/payments/:id", adminHandler.GetPayment)
			admin.GET("/splits", adminHandler.ListSplits)

			// 退款
			admin.POST("/refunds", adminHandler.CreateRefund)
			admin.GET("/refunds", adminHandler.ListRefunds)
			admin.GET("/refunds/:id", adminHandler.GetRefund)

			// 打款
			admin.GET("/payouts", adminHandler.ListPayouts)
			admin.POST("/payouts/process", adminHandler.ProcessPayouts)
			admin.GET("/payouts/:id", adminHandler.GetPayout)

			// 权限管理
			admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
			admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
