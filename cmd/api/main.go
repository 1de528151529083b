package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mehrblog/backend/internal/config"
	"github.com/mehrblog/backend/internal/handlers"
	"github.com/mehrblog/backend/internal/middleware"
	"github.com/mehrblog/backend/internal/models"
	"github.com/mehrblog/backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize services
	smsService := services.NewSMSService(cfg)
	otpStore := services.NewOtpStore(db)
	userStore := services.NewUserStore(db)
	authService := services.NewAuthService(otpStore, userStore, redisClient, smsService, cfg)
	userService := services.NewUserService(db)
	blogService := services.NewBlogService(db)
	commentService := services.NewCommentService(db, blogService)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		log.Fatalf("Failed to init storage service: %v", err)
	}

	// Create superuser if not exists
	if err := userService.CreateDefaultSuperuser(cfg); err != nil {
		log.Printf("Failed to create default superuser: %v", err)
	}

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	blogHandler := handlers.NewBlogHandler(blogService, storageService)
	commentHandler := handlers.NewCommentHandler(commentService)
	userHandler := handlers.NewUserHandler(userService)

	// Health check outside API group (no /api/v1 prefix)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Setup routes
	api := router.Group("/api/v1")
	{
		// Catch-all OPTIONS handler for CORS preflight requests
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/verify", authHandler.Verify)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", middleware.Auth(authService), authHandler.Logout)
			auth.POST("/two-step-password", middleware.Auth(authService), authHandler.CreateTwoStepPassword)
			auth.POST("/two-step-password/change", middleware.Auth(authService), authHandler.ChangeTwoStepPassword)
		}

		// Blog routes
		blogs := api.Group("/blogs")
		{
			blogs.GET("", blogHandler.List)
			blogs.POST("", middleware.Auth(authService), middleware.AuthorOrSuperuser(), blogHandler.Create)
			blogs.GET("/category/:slug", blogHandler.ListByCategory)
			blogs.GET("/like/:id", middleware.Auth(authService), blogHandler.ToggleLike)
			blogs.GET("/:slug", blogHandler.Get)
			blogs.PUT("/:slug", middleware.Auth(authService), middleware.AuthorOrSuperuser(), blogHandler.Update)
			blogs.DELETE("/:slug", middleware.Auth(authService), middleware.AuthorOrSuperuser(), blogHandler.Delete)
			blogs.POST("/:slug/image", middleware.Auth(authService), middleware.AuthorOrSuperuser(), blogHandler.UploadImage)
		}

		api.GET("/categories", blogHandler.ListCategories)

		// Comment routes
		comments := api.Group("/comments")
		{
			comments.GET("/:id", commentHandler.ListForBlog)
			comments.POST("/create", middleware.Auth(authService), commentHandler.Create)
			comments.PUT("/:id", middleware.Auth(authService), commentHandler.Update)
			comments.DELETE("/:id", middleware.Auth(authService), commentHandler.Delete)
		}

		// Profile routes
		user := api.Group("/user")
		user.Use(middleware.Auth(authService))
		{
			user.GET("/profile", userHandler.GetProfile)
			user.PUT("/profile", userHandler.UpdateProfile)
			user.DELETE("/profile", userHandler.DeleteProfile)
		}

		// User management (superuser only)
		users := api.Group("/users")
		users.Use(middleware.Auth(authService))
		users.Use(middleware.SuperuserOnly())
		{
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
