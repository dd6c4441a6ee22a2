package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"profilegate-go-server/api/controller"
	"profilegate-go-server/api/route"
	"profilegate-go-server/bootstrap"
	domainRepo "profilegate-go-server/domain/repository"
	"profilegate-go-server/internal/metrics"
	"profilegate-go-server/internal/ws"
	"profilegate-go-server/repository"
	"profilegate-go-server/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Println("[Server] ProfileGate Go Server 启动中...")

	// 加载环境变量
	env := bootstrap.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	// 初始化 Clerk
	bootstrap.InitClerk(env.ClerkSecretKey)

	// 依赖注入 - Repository 层
	var (
		profileRepo  domainRepo.ProfileRepository
		settingsRepo domainRepo.SettingsRepository
	)
	if env.MemoryMode() {
		log.Println("[Server] ⚠️ 使用内存存储，重启后数据丢失")
		profileRepo = repository.NewMemoryProfileRepository()
		settingsRepo = repository.NewMemorySettingsRepository()
	} else {
		db := bootstrap.NewDatabase(env.DatabaseURL, env.Debug())
		profileRepo = repository.NewProfileRepository(db)
		settingsRepo = repository.NewSettingsRepository(db)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// 身份事件：本地 Hub，配置 Redis 时经 Relay 跨实例广播
	hub := ws.NewHub(m)
	var publisher domainRepo.IdentityEventPublisher = hub
	redisClient, err := bootstrap.NewRedis(env.RedisURL)
	if err != nil {
		log.Fatalf("[Server] ❌ %v", err)
	}
	var relay *ws.Relay
	if redisClient != nil {
		defer redisClient.Close()
		relay = ws.NewRelay(redisClient, hub)
		publisher = relay
	}

	accessor := repository.NewClerkSessionAccessor(repository.NewClerkAPI(), hub)

	// 依赖注入 - UseCase 层
	resolver := usecase.NewProfileResolver(profileRepo, m)
	tracker := usecase.NewSessionTracker(accessor, resolver)
	profileUseCase := usecase.NewProfileUseCase(resolver, profileRepo, accessor)
	adminUseCase := usecase.NewAdminUseCase(profileRepo)
	settingsUseCase := usecase.NewSettingsUseCase(settingsRepo)

	// 配置 Gin 路由
	router := gin.Default()

	// CORS 配置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     env.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 设置路由
	route.Setup(router, &route.Dependencies{
		Accessor:          accessor,
		Resolver:          resolver,
		Metrics:           m,
		MetricsHandler:    promhttp.Handler(),
		SessionController: controller.NewSessionController(accessor, resolver, publisher),
		ViewController:    controller.NewViewController(resolver, m),
		ProfileController: controller.NewProfileController(profileUseCase),
		AdminController:   controller.NewAdminController(adminUseCase, settingsUseCase),
		WebhookController: controller.NewWebhookController(resolver, publisher, env.WebhookSecret),
		WSHandler:         controller.NewWSHandler(accessor, tracker, m, env.AllowedOrigins),
	})

	srv := &http.Server{
		Addr:    ":" + env.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Hub 事件循环
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	g.Go(func() error {
		log.Printf("[Server] 服务已启动: http://localhost:%s", env.Port)
		log.Printf("[Server] API 端点:")
		log.Printf("   GET   /health                    - 健康检查")
		log.Printf("   GET   /metrics                   - Prometheus 指标")
		log.Printf("   GET   /api/session               - 当前会话")
		log.Printf("   GET   /api/views/:view           - 页面授权")
		log.Printf("   GET   /api/profile               - 当前用户资料")
		log.Printf("   GET   /api/admin/users           - 用户列表")
		log.Printf("   GET   /ws/session?token=xxx      - 会话状态推送")
		log.Printf("   POST  /webhook/clerk             - Clerk Webhook")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 优雅停机
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[Server] 收到停机信号，正在优雅关闭...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("[Server] 服务异常退出: %v", err)
	}
	log.Println("[Server] 服务已安全停止")
}
