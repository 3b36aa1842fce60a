package main

import (
	"log"
	"os"
	"time"

	"lanting/internal/db"
	"lanting/internal/handlers"
	"lanting/internal/middleware"
	"lanting/internal/services"
	"lanting/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	// 通知去重的 TTL KV：配置了 REDIS_URL 用 Redis（多实例共享），
	// 否则退回进程内 LRU。进程启动时选定，之后不再切换。
	var dedupCache services.DedupCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		rc, err := services.NewRedisDedupCache(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		dedupCache = rc
		log.Println("Notification dedup cache: redis")
	} else {
		dedupCache = services.NewMemoryDedupCache()
		log.Println("Notification dedup cache: in-memory")
	}

	// 组装反应引擎
	mailService := services.NewMailService()
	reactionStore := services.NewGormReactionStore()
	notificationStore := services.NewGormNotificationStore()
	dedup := services.NewNotificationDeduplicator(notificationStore, dedupCache)
	engine := services.NewReactionEngine(
		reactionStore,
		services.NewGormTargetStore(),
		notificationStore,
		dedup,
		services.ThresholdsFromEnv(),
	)
	engine.AttachCacheInvalidator(utils.GetCache())
	engine.AttachMailer(mailService)

	// 异步兜底重算
	reconciler := services.NewReconciler(func(target services.TargetRef) error {
		_, _, err := engine.Recompute(target)
		return err
	})
	engine.AttachReconciler(reconciler)

	// 启动兜底：把最近一天有过反应的目标全部重算一遍，
	// 收敛上次进程退出时可能留下的过期计数
	if targets, err := reactionStore.RecentlyReacted(time.Now().Add(-24*time.Hour)); err != nil {
		log.Printf("启动兜底重算扫描失败: %v", err)
	} else {
		reconciler.Sweep(targets)
	}

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("lanting_session", store))

	// Middleware
	r.Use(middleware.LoadUser())

	// Google OAuth
	handlers.InitGoogleOAuth()

	// Handlers
	authHandler := handlers.NewAuthHandler(mailService)
	articleHandler := handlers.NewArticleHandler(mailService)
	reactionHandler := handlers.NewReactionHandler(engine)
	userHandler := handlers.NewUserHandler()
	followHandler := handlers.NewFollowHandler()
	notificationHandler := handlers.NewNotificationHandler()

	// Public Routes
	r.GET("/articles", articleHandler.List)
	r.GET("/a/:aid", articleHandler.Detail)
	r.GET("/u/:id", userHandler.Profile)

	r.GET("/signup/captcha", authHandler.Captcha)
	r.POST("/signup", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)
	r.GET("/auth/google", authHandler.GoogleLogin)
	r.GET("/auth/google/callback", authHandler.GoogleCallback)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/articles", articleHandler.Create)
		authorized.DELETE("/a/:aid", articleHandler.Delete)
		authorized.POST("/a/:aid/comments", articleHandler.CreateComment)
		authorized.DELETE("/comments/:cid", articleHandler.DeleteComment)

		// 点赞/点踩：文章和评论走同一个引擎
		authorized.POST("/a/:aid/react", reactionHandler.ReactArticle)
		authorized.POST("/comments/:cid/react", reactionHandler.ReactComment)

		authorized.POST("/follow/:id", followHandler.Toggle)
		authorized.GET("/following", followHandler.Following)
		authorized.GET("/followers", followHandler.Followers)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)

		authorized.POST("/settings", userHandler.UpdateSettings)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Lanting server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
