// Package main 是应用程序的入口点。
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meslek-atlasi/internal/catalog"
	"meslek-atlasi/internal/config"
	"meslek-atlasi/internal/handler"
	"meslek-atlasi/internal/model"
	"meslek-atlasi/internal/repository"
	"meslek-atlasi/internal/service"
	"meslek-atlasi/pkg/database"
	"meslek-atlasi/pkg/kafka"
	"meslek-atlasi/pkg/llm"
	"meslek-atlasi/pkg/log"
	"meslek-atlasi/pkg/storage"
	"meslek-atlasi/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to the config file")
	flag.Parse()

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	if cfg.Session.Secret == "" {
		log.Fatalf("session.secret 未配置")
	}

	// 3. 初始化数据库、Redis 与对象存储
	database.InitDB(cfg.Database)
	if err := database.DB.AutoMigrate(model.AutoMigrateModels()...); err != nil {
		log.Fatal("数据库迁移失败", err)
	}
	database.InitRedis(cfg.Database.Redis)
	if err := storage.InitMinIO(cfg.MinIO); err != nil {
		log.Error("MinIO 初始化失败，对象存储中的数据集将不可用", err)
	}
	publisher := kafka.NewPublisher(cfg.Kafka)
	defer publisher.Close()

	// 4. 加载职业数据集（失败时为空目录）
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	professions := catalog.Load(loadCtx, cfg.Catalog.Source, cfg.Catalog.RequiredColumns)
	cancelLoad()

	// 5. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	messageRepo := repository.NewMessageRepository(database.DB)
	blacklist := repository.NewTokenBlacklist(database.RDB)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.Session.Secret, cfg.Session.ExpireDays, cfg.Admin.TokenExpireHours)
	prompts := service.NewPrompts(cfg.LLM.Prompt)
	searchClient := llm.NewClient(cfg.LLM, cfg.LLM.SearchModel)
	chatClient := llm.NewClient(cfg.LLM, cfg.LLM.Model)

	identityService := service.NewIdentityService(userRepo, jwtManager)
	conversationService := service.NewConversationService(messageRepo, publisher)
	searchService := service.NewSearchService(searchClient, prompts)
	advisorService := service.NewAdvisorService(chatClient, prompts)
	chatService := service.NewChatService(conversationService, searchService, advisorService, professions, prompts, publisher)
	adminService := service.NewAdminService(cfg.Admin, userRepo, messageRepo, blacklist, jwtManager)

	// 7. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(cfg, jwtManager, handler.Services{
		Identity:     identityService,
		Conversation: conversationService,
		Chat:         chatService,
		Admin:        adminService,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
