package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/minestapp/minest-backend/config"
	"github.com/minestapp/minest-backend/controllers"
	"github.com/minestapp/minest-backend/database"
	"github.com/minestapp/minest-backend/middleware"
	"github.com/minestapp/minest-backend/services"
	"github.com/minestapp/minest-backend/store"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var lg zerolog.Logger
	if cfg.IsProduction() {
		lg = zerolog.New(os.Stdout)
	} else {
		lg = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return lg.Level(level).With().Timestamp().Logger()
}

func newEmailSender(cfg *config.Config, lg zerolog.Logger) services.EmailSender {
	if cfg.EmailSender == "smtp" {
		return services.NewSMTPSender(services.SMTPConfig{
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			Username:  cfg.SMTPUser,
			Password:  cfg.SMTPPass,
			From:      cfg.EmailFrom,
			ClientURL: cfg.ClientURL,
		}, lg)
	}
	return services.NewLogSender(lg)
}

func main() {
	cfg := config.Load()
	lg := newLogger(cfg)

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer db.Disconnect(context.Background())
	if err := db.EnsureIndexes(ctx); err != nil {
		lg.Fatal().Err(err).Msg("failed to create indexes")
	}
	lg.Info().Str("database", cfg.DatabaseName).Msg("connected to MongoDB")

	redisClient := database.NewRedisClient(cfg)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mailer := newEmailSender(cfg, lg)
	auth := services.NewAuthService(store.NewMongoUserStore(db), tokens, mailer, lg)
	todos := services.NewTodoService(store.NewMongoTodoStore(db), cfg.DefaultQueryLimit, cfg.MaxQueryLimit, lg)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(cfg.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(lg))
	r.Use(middleware.RateLimit(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax, lg))
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", controllers.Register(auth))
		authGroup.POST("/login", controllers.Login(auth))
		authGroup.POST("/refresh-token", controllers.Refresh(auth))
		authGroup.POST("/forgot-password", controllers.ForgotPassword(auth, cfg.ResetTokenTTL))
		authGroup.POST("/reset-password", controllers.ResetPassword(auth))
		authGroup.POST("/verify-email", controllers.VerifyEmail(auth))

		protected := authGroup.Group("")
		protected.Use(middleware.AuthRequired(tokens))
		{
			protected.POST("/logout", controllers.Logout(auth))
			protected.POST("/change-password", controllers.ChangePassword(auth))
		}
	}

	profile := api.Group("/profile")
	profile.Use(middleware.AuthRequired(tokens))
	{
		profile.GET("/me", controllers.GetProfile(auth))
		profile.PATCH("/update-profile", controllers.UpdateProfile(auth))
	}

	todosGroup := api.Group("/todos")
	todosGroup.Use(middleware.AuthRequired(tokens))
	{
		todosGroup.POST("", controllers.CreateTodo(todos))
		todosGroup.GET("", controllers.GetTodos(todos))
		todosGroup.GET("/due-date", controllers.GetTodosByDueDate(todos))
		todosGroup.GET("/status/:status", controllers.GetTodosByStatus(todos))
		todosGroup.GET("/priority/:priority", controllers.GetTodosByPriority(todos))
		todosGroup.GET("/tag/:tag", controllers.GetTodosByTag(todos))
		todosGroup.GET("/:id", controllers.GetTodo(todos))
		todosGroup.PUT("/:id", controllers.UpdateTodo(todos))
		todosGroup.DELETE("/:id", controllers.DeleteTodo(todos))
	}

	lg.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
	if err := r.Run(":" + cfg.Port); err != nil {
		lg.Fatal().Err(err).Msg("server stopped")
	}
}
