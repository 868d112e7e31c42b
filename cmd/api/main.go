package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/Hizbul38/book-porter-api/internal/config"
	"github.com/Hizbul38/book-porter-api/internal/handler"
	"github.com/Hizbul38/book-porter-api/internal/middleware"
	"github.com/Hizbul38/book-porter-api/internal/model"
	"github.com/Hizbul38/book-porter-api/internal/payment"
	"github.com/Hizbul38/book-porter-api/internal/repository"
	"github.com/Hizbul38/book-porter-api/internal/service"
	"github.com/Hizbul38/book-porter-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	bookRepo := repository.NewBookRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	reviewRepo := repository.NewReviewRepository(dbPool)
	wishlistRepo := repository.NewWishlistRepository(dbPool)

	// Services
	processor := payment.NewStripeClient(cfg.Payment.APIBase, cfg.Payment.SecretKey, cfg.Payment.Timeout)

	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	catalogSvc := service.NewCatalogService(bookRepo, redisClient)
	orderSvc := service.NewOrderService(orderRepo, bookRepo, amqpCh)
	paymentSvc := service.NewPaymentService(orderRepo, processor, amqpCh, cfg.Payment)
	reviewSvc := service.NewReviewService(reviewRepo, orderRepo, bookRepo, nil)
	wishlistSvc := service.NewWishlistService(wishlistRepo, bookRepo)
	userSvc := service.NewUserService(userRepo)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	bookH := handler.NewBookHandler(catalogSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)
	wishlistH := handler.NewWishlistHandler(wishlistSvc)
	userH := handler.NewUserHandler(userSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	eventWorker := worker.NewOrderEventWorker(amqpCh, orderRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	requireAuth := middleware.AuthMiddleware(cfg.JWT.Secret)
	staffOnly := middleware.RequireRoles(model.RoleLibrarian, model.RoleAdmin)
	adminOnly := middleware.RequireRoles(model.RoleAdmin)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		books := v1.Group("/books")
		books.GET("", middleware.OptionalAuth(cfg.JWT.Secret), bookH.List)
		books.GET("/mine", requireAuth, staffOnly, bookH.ListMine)
		books.GET("/:id", middleware.OptionalAuth(cfg.JWT.Secret), bookH.GetByID)
		books.GET("/:id/reviews", middleware.OptionalAuth(cfg.JWT.Secret), reviewH.ListByBook)
		books.POST("", requireAuth, staffOnly, bookH.Create)
		books.PUT("/:id", requireAuth, staffOnly, bookH.Update)
		books.PATCH("/:id/status", requireAuth, staffOnly, bookH.SetStatus)
		books.DELETE("/:id", requireAuth, adminOnly, bookH.Delete)
		books.POST("/:id/reviews", requireAuth, reviewH.Create)

		orders := v1.Group("/orders", requireAuth)
		orders.POST("", orderH.Create)
		orders.GET("", orderH.List)
		orders.GET("/:id", orderH.GetByID)
		orders.PATCH("/:id/cancel", orderH.Cancel)

		librarian := v1.Group("/librarian/orders", requireAuth, staffOnly)
		librarian.GET("", orderH.ListIncoming)
		librarian.PATCH("/:id/status", orderH.UpdateStatus)
		librarian.PATCH("/:id/cancel", orderH.Cancel)

		payments := v1.Group("/payments", requireAuth)
		payments.POST("/checkout-session", paymentH.CreateCheckoutSession)
		payments.POST("/verify", paymentH.Verify)

		reviews := v1.Group("/reviews", requireAuth)
		reviews.GET("/eligibility/:bookId", reviewH.Eligibility)

		wishlist := v1.Group("/wishlist", requireAuth)
		wishlist.GET("", wishlistH.List)
		wishlist.POST("", wishlistH.Add)
		wishlist.DELETE("/:id", wishlistH.Remove)

		admin := v1.Group("/admin/users", requireAuth, adminOnly)
		admin.GET("", userH.List)
		admin.PATCH("/:id/role", userH.UpdateRole)
	}

	if err := eventWorker.Start(ctx); err != nil {
		log.Error("start order event worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	eventWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
