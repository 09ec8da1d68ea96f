package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/lecture"
	"rollcall/internal/passkey"
	"rollcall/internal/qr"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/store"
	"rollcall/internal/token"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Printf("warning: db not reachable, using in-memory stores: %v", err)
		db = nil
	} else if err := db.Migrate(ctx); err != nil {
		return err
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:marks")
	}

	// Persistence backends: Postgres when reachable, in-memory otherwise.
	var (
		lectureStore lecture.Store
		attStore     attendance.Store
		userStore    roster.Store
		credStore    passkey.CredentialStore
	)
	if db != nil {
		lectureStore = lecture.NewRepository(db.Client)
		attStore = attendance.NewRepository(db.Client)
		userStore = roster.NewRepository(db.Client)
		credStore = passkey.NewCredentialRepository(db.Client)
	} else {
		lectureStore = lecture.NewMemoryStore()
		attStore = attendance.NewMemoryStore()
		userStore = roster.NewMemoryStore()
		credStore = passkey.NewMemoryCredentialStore()
	}

	var challenges passkey.ChallengeStore
	if cfg.ChallengeBackend == "redis" {
		challenges = passkey.NewRedisChallengeStore(redisClient.Client, cfg.ChallengeTTL)
	} else {
		memChallenges := passkey.NewMemoryChallengeStore(cfg.ChallengeTTL)
		challenges = memChallenges
		go sweepChallenges(ctx, memChallenges, cfg.ChallengeTTL)
	}

	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)
	lectures := lecture.NewService(tokens, lectureStore, cfg.LectureTTL)
	ledger := attendance.NewService(tokens, lectures, attStore)

	broker, err := passkey.New(passkey.Config{
		RPID:      cfg.RPID,
		RPName:    cfg.RPName,
		RPOrigins: cfg.RPOrigins,
	}, userStore, challenges, credStore)
	if err != nil {
		return err
	}

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(newRateLimiter(cfg.RateLimitPerMin))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db != nil
		status := http.StatusOK
		if !redisHealthy && cfg.QueueBackend != "memory" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/register", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
			Name   string `json:"name" binding:"required"`
			Email  string `json:"email" binding:"required"`
			Role   string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		role, err := auth.ParseRole(req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.UserID == "" {
			req.UserID = uuid.NewString()
		}

		u := roster.User{
			ID:        req.UserID,
			Name:      req.Name,
			Email:     req.Email,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		}
		if err := userStore.Upsert(c.Request.Context(), u); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "user save failed"})
			return
		}

		pair, err := auth.Issue(u.ID, role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"user_id":       u.ID,
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"expires_at":    pair.AccessExp.Unix(),
		})
	})

	authGroup := r.Group("/v1", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/lectures", auth.RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		claims, _ := auth.FromContext(c)

		var req struct {
			Subject         string `json:"subject" binding:"required"`
			DurationMinutes int    `json:"duration_minutes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ttl := time.Duration(req.DurationMinutes) * time.Minute
		lec, err := lectures.Create(c.Request.Context(), claims.Subject, req.Subject, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lecture create failed"})
			return
		}

		qrDataURL, err := qr.DataURL(lec.QRToken)
		if err != nil {
			log.Printf("qr render failed for lecture %s: %v", lec.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr render failed"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"lecture_id":  lec.ID,
			"qr_token":    lec.QRToken,
			"qr_data_url": qrDataURL,
			"expires_at":  lec.ExpiresAt,
		})
	})

	authGroup.GET("/lectures/:id", func(c *gin.Context) {
		lec, err := lectures.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, lecture.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "lecture not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lecture lookup failed"})
			return
		}
		c.JSON(http.StatusOK, lec)
	})

	authGroup.POST("/attendance/mark", auth.RequireRole(auth.RoleStudent), func(c *gin.Context) {
		claims, _ := auth.FromContext(c)

		var req struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := ledger.Mark(c.Request.Context(), req.Token, claims.Subject)
		if err != nil {
			status, msg := markError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}

		if body, merr := recordBody(rec); merr == nil {
			if err := q.Publish(ctx, queue.Message{Type: "mark", Body: body}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "attendance marked", "record": rec})
	})

	authGroup.GET("/attendance/lecture/:id", auth.RequireRole(auth.RoleTeacher), func(c *gin.Context) {
		claims, _ := auth.FromContext(c)

		lec, err := lectures.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, lecture.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "lecture not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lecture lookup failed"})
			return
		}
		if claims.Role != auth.RoleAdmin && lec.TeacherID != claims.Subject {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your lecture"})
			return
		}

		records, err := ledger.ListByLecture(c.Request.Context(), lec.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	authGroup.GET("/attendance/me", auth.RequireRole(auth.RoleStudent), func(c *gin.Context) {
		claims, _ := auth.FromContext(c)
		records, err := ledger.ListByStudent(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"records": records})
	})

	authGroup.POST("/webauthn/register/begin", func(c *gin.Context) {
		claims, _ := auth.FromContext(c)
		options, err := broker.BeginRegistration(c.Request.Context(), claims.Subject)
		if err != nil {
			status, msg := passkeyError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, options)
	})

	authGroup.POST("/webauthn/register/finish", func(c *gin.Context) {
		claims, _ := auth.FromContext(c)
		if _, err := broker.FinishRegistration(c.Request.Context(), claims.Subject, c.Request); err != nil {
			status, msg := passkeyError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "biometric registered"})
	})

	authGroup.POST("/webauthn/login/begin", func(c *gin.Context) {
		claims, _ := auth.FromContext(c)
		options, err := broker.BeginAuthentication(c.Request.Context(), claims.Subject)
		if err != nil {
			status, msg := passkeyError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, options)
	})

	authGroup.POST("/webauthn/login/finish", func(c *gin.Context) {
		claims, _ := auth.FromContext(c)
		if err := broker.FinishAuthentication(c.Request.Context(), claims.Subject, c.Request); err != nil {
			status, msg := passkeyError(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "biometric ok"})
	})

	authGroup.GET("/webauthn/registered", func(c *gin.Context) {
		claims, _ := auth.FromContext(c)
		registered, err := broker.IsRegistered(c.Request.Context(), claims.Subject)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"registered": registered})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
