package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"deliveryhub/internal/cache"
	"deliveryhub/internal/config"
	"deliveryhub/internal/database"
	"deliveryhub/internal/handlers"
	"deliveryhub/internal/identity"
	"deliveryhub/internal/mailer"
	"deliveryhub/internal/middleware"
	"deliveryhub/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(cfg.DBName)
	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureOTPIndexes(db); err != nil {
		log.Printf("otp index warning: %v", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		log.Printf("refresh token index warning: %v", err)
	}

	var sessionCache cache.Cache
	if cfg.RedisAddr != "" {
		log.Println("session cache: redis at", cfg.RedisAddr)
		sessionCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	} else {
		log.Println("session cache: in-memory (REDIS_ADDR not set)")
		sessionCache = cache.NewMemory()
	}

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		log.Println("mailer: smtp via", cfg.SMTPHost)
		mail = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		log.Println("mailer: logging only (SMTP_HOST not set)")
		mail = mailer.NewLog()
	}

	svc, err := identity.New(identity.Options{
		Users:      repository.NewUserRepo(db),
		OTPs:       repository.NewOTPRepo(db),
		Tokens:     repository.NewTokenRepo(db),
		Cache:      sessionCache,
		Mailer:     mail,
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		OTPTTL:     cfg.OTPTTL,
		CacheTTL:   cfg.CacheTTL,
	})
	if err != nil {
		log.Fatal(err)
	}

	r := gin.Default()

	auth := r.Group("/auth")
	{
		auth.POST("/register", handlers.Register(svc))
		auth.POST("/login", handlers.Login(svc))
		auth.POST("/federated", handlers.FederatedLogin(svc))
		auth.POST("/refresh", handlers.Refresh(svc))
		auth.POST("/logout", handlers.Logout(svc))
		auth.POST("/verification/send", handlers.SendVerificationOTP(svc))
		auth.POST("/verification/confirm", handlers.VerifyEmail(svc))
		auth.POST("/password/forgot", handlers.ForgotPassword(svc))
		auth.POST("/password/reset", handlers.ResetPassword(svc))

		auth.GET("/me", middleware.UserAuth(cfg.JWTSecret), handlers.GetMe(svc))
		auth.POST("/password/change", middleware.UserAuth(cfg.JWTSecret), handlers.ChangePassword(svc))
	}

	user := r.Group("/user")
	user.Use(middleware.UserAuth(cfg.JWTSecret))
	{
		user.PUT("/profile", handlers.UpdateProfile(svc))
		user.PUT("/active", handlers.SetActive(svc))
		user.GET("/addresses", handlers.GetAddresses(svc))
		user.POST("/addresses", handlers.CreateAddress(svc))
		user.PUT("/addresses/:id", handlers.UpdateAddress(svc))
		user.DELETE("/addresses/:id", handlers.DeleteAddress(svc))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
