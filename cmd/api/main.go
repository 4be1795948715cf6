package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mess/internal/attendance"
	"mess/internal/auth"
	"mess/internal/config"
	"mess/internal/httpmiddleware"
	"mess/internal/mealclock"
	"mess/internal/menu"
	"mess/internal/qr"
	"mess/internal/queue"
	"mess/internal/store"
	"mess/internal/wastage"
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
	mess, err := mealclock.New(cfg.MessTimezone)
	if err != nil {
		return err
	}

	db, err := store.NewDB(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		// An unreachable database starts degraded (healthz reports it);
		// an unopenable one cannot serve at all.
		if db == nil {
			return fmt.Errorf("open database: %w", err)
		}
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "mess:tokens")
	}

	attRepo := attendance.NewRepository(db.Client)
	att := attendance.NewService(attRepo, mess, cfg.TokenValidity, cfg.YesPoints)
	menus := menu.NewService(menu.NewRepository(db.Client), mess)
	waste := wastage.NewService(wastage.NewRepository(db.Client))
	renderer := qr.NewRenderer(redisClient.Client, cfg.TokenValidity)
	ctx := context.Background()

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
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Login-or-register by email. Staff role requires the configured
	// access code.
	r.POST("/api/auth", func(c *gin.Context) {
		var req struct {
			Name      string `json:"name"`
			Email     string `json:"email" binding:"required,email"`
			StaffCode string `json:"staff_code"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		student, err := att.FindOrCreateStudent(c.Request.Context(), req.Name, req.Email)
		if err != nil {
			respondErr(c, err)
			return
		}

		role := auth.RoleStudent
		if req.StaffCode != "" && cfg.StaffAccessCode != "" && req.StaffCode == cfg.StaffAccessCode {
			role = auth.RoleStaff
		}
		token, exp, err := auth.Issue(student.ID, role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user":         student,
			"role":         role,
			"access_token": token,
			"expires_at":   exp.Unix(),
		})
	})

	// Entry scanners hit this without a session.
	r.GET("/api/qr/:token", func(c *gin.Context) {
		png, err := renderer.Render(c.Request.Context(), c.Param("token"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	api := r.Group("/api", auth.Bearer(cfg.JWTSigningKey, cfg.JWTIssuer))

	api.GET("/menu", func(c *gin.Context) {
		meals, err := menus.Week(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, meals)
	})

	api.GET("/menu/today", func(c *gin.Context) {
		meal, slot, open, err := menus.Today(c.Request.Context())
		if err != nil {
			if errors.Is(err, menu.ErrNoMenu) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		resp := gin.H{"menu": meal}
		if open {
			resp["active_meal"] = slot
		} else {
			resp["active_meal"] = nil
		}
		c.JSON(http.StatusOK, resp)
	})

	api.GET("/points/:studentID", func(c *gin.Context) {
		points, err := att.Points(c.Request.Context(), c.Param("studentID"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"points": points})
	})

	api.POST("/attendance", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"student_id" binding:"required"`
			MealID    string `json:"meal_instance_id" binding:"required"`
			MealSlot  string `json:"meal_slot" binding:"required"`
			Response  string `json:"response"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claimsAny, _ := c.Get("claims")
		claims, _ := claimsAny.(auth.Claims)
		if claims.Role == auth.RoleStudent && claims.Subject != req.StudentID {
			c.JSON(http.StatusForbidden, gin.H{"error": "student mismatch"})
			return
		}

		rec, err := att.Submit(c.Request.Context(), req.StudentID, req.MealID, req.MealSlot, req.Response)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := gin.H{"success": true, "response": rec.Response}
		if rec.Response == attendance.Yes && rec.Token != nil {
			resp["token"] = *rec.Token
			resp["valid_until"] = rec.ValidUntil
			if err := q.Publish(ctx, queue.Message{Type: queue.TypeToken, Body: []byte(*rec.Token)}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
		}
		c.JSON(http.StatusOK, resp)
	})

	api.GET("/activeqr/:studentID", func(c *gin.Context) {
		token, err := att.ActiveToken(c.Request.Context(), c.Param("studentID"))
		if err != nil {
			respondErr(c, err)
			return
		}
		if token == "" {
			c.JSON(http.StatusOK, gin.H{"token": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	staff := api.Group("", auth.RequireStaff())

	staff.POST("/menu", func(c *gin.Context) {
		var req struct {
			Breakfast string `json:"breakfast"`
			Lunch     string `json:"lunch"`
			Dinner    string `json:"dinner"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		meal, err := menus.SetToday(c.Request.Context(), req.Breakfast, req.Lunch, req.Dinner)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "menu saved", "menu": meal})
	})

	staff.GET("/stats/meals", func(c *gin.Context) {
		date, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date (YYYY-MM-DD) required"})
			return
		}
		stats, err := menus.StatsForDate(c.Request.Context(), date)
		if err != nil {
			if errors.Is(err, menu.ErrNoMenu) {
				c.JSON(http.StatusOK, []menu.SlotStats{})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	staff.GET("/no", func(c *gin.Context) {
		entries, err := att.NoList(c.Request.Context(), c.Query("meal_instance_id"), c.Query("meal_slot"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(entries), "data": entries})
	})

	staff.GET("/no/export", func(c *gin.Context) {
		entries, err := att.NoList(c.Request.Context(), c.Query("meal_instance_id"), c.Query("meal_slot"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="no_list.csv"`)
		if err := attendance.WriteNoListCSV(c.Writer, entries); err != nil {
			log.Printf("csv export failed: %v", err)
		}
	})

	staff.POST("/wastage", func(c *gin.Context) {
		var req struct {
			MealID        string                 `json:"meal_instance_id" binding:"required"`
			MealSlot      string                 `json:"meal_slot" binding:"required"`
			TotalCookedKg float64                `json:"total_cooked_kg"`
			UsedKg        *float64               `json:"used_kg" binding:"required"`
			LeftoverKg    *float64               `json:"leftover_kg" binding:"required"`
			NotedBy       string                 `json:"noted_by" binding:"required"`
			Breakdown     []wastage.BreakdownRow `json:"breakdown"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		entry, err := waste.Record(c.Request.Context(), req.MealID, req.MealSlot, req.NotedBy,
			req.TotalCookedKg, *req.UsedKg, *req.LeftoverKg, req.Breakdown)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "wastage_id": entry.ID})
	})

	staff.GET("/wastage/series", func(c *gin.Context) {
		from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		points, err := waste.Series(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": points})
	})

	staff.GET("/wastage/pie", func(c *gin.Context) {
		slices, err := waste.Pie(c.Request.Context(), c.Query("meal_instance_id"), c.Query("meal_slot"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": slices})
	})

	staff.GET("/wastage/categories", func(c *gin.Context) {
		cats, err := waste.Categories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "data": cats})
	})

	staff.GET("/wastage/export", func(c *gin.Context) {
		from, to, err := parseDateRange(c.Query("from"), c.Query("to"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", `attachment; filename="wastage.xlsx"`)
		if err := waste.ExportXLSX(c.Request.Context(), c.Writer, from, to); err != nil {
			log.Printf("xlsx export failed: %v", err)
		}
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// respondErr maps core errors onto HTTP statuses: validation and policy
// rejections are 4xx, lookups 404, everything else 500.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, attendance.ErrMissingFields), errors.Is(err, attendance.ErrInvalidSlot):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrStudentNotFound), errors.Is(err, attendance.ErrMealNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		if rej, ok := attendance.AsRejection(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": rej.Error(), "kind": rej.Kind})
			return
		}
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from (YYYY-MM-DD) required")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to (YYYY-MM-DD) required")
	}
	// Inclusive end date.
	return from, to.AddDate(0, 0, 1), nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
