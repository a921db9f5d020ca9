package provider

import (
	"github.com/kalakart-next/internal/authz"
	"github.com/kalakart-next/internal/cache"
	"github.com/kalakart-next/internal/config"
	"github.com/kalakart-next/internal/gateway"
	"github.com/kalakart-next/internal/gateway/sandbox"
	"github.com/kalakart-next/internal/logger"
	"github.com/kalakart-next/internal/models"
	"github.com/kalakart-next/internal/queue"
	"github.com/kalakart-next/internal/repository"
	"github.com/kalakart-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	PaymentRepo       repository.PaymentRepository
	SplitRepo         repository.SplitRepository
	RefundRepo        repository.RefundRepository
	KycRepo           repository.KycRepository
	BankAccountRepo   repository.BankAccountRepository
	LinkedAccountRepo repository.LinkedAccountRepository
	PayoutRepo        repository.PayoutRepository

	// Gateways
	PaymentGateway gateway.PaymentGateway
	PayoutGateway  gateway.PayoutGateway

	// Services
	AuthzService       *authz.Service
	PaymentService     *service.PaymentService
	KycService         *service.KycService
	BankAccountService *service.BankAccountService
	PayoutService      *service.PayoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Gateways 与 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.SplitRepo = repository.NewSplitRepository(db)
	c.RefundRepo = repository.NewRefundRepository(db)
	c.KycRepo = repository.NewKycRepository(db)
	c.BankAccountRepo = repository.NewBankAccountRepository(db)
	c.LinkedAccountRepo = repository.NewLinkedAccountRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	sandboxGateway := sandbox.New(c.Config.Payments.GatewayKeySecret)
	c.PaymentGateway = sandboxGateway
	c.PayoutGateway = sandboxGateway

	c.PaymentService = service.NewPaymentService(
		c.PaymentRepo,
		c.SplitRepo,
		c.RefundRepo,
		c.KycRepo,
		c.LinkedAccountRepo,
		c.PaymentGateway,
		c.QueueClient,
		&c.Config.Payments,
	)
	c.KycService = service.NewKycService(
		c.KycRepo,
		c.LinkedAccountRepo,
		c.PayoutGateway,
		c.QueueClient,
	)
	c.BankAccountService = service.NewBankAccountService(
		c.BankAccountRepo,
		c.KycRepo,
		c.LinkedAccountRepo,
		c.PayoutGateway,
	)
	c.PayoutService = service.NewPayoutService(
		c.PayoutRepo,
		c.SplitRepo,
		c.BankAccountRepo,
		c.KycRepo,
		c.LinkedAccountRepo,
		c.PayoutGateway,
		c.QueueClient,
		&c.Config.Payouts,
	)
}
