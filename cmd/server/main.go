package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	config "tootsched/configs"
	"tootsched/internal/api/handlers"
	"tootsched/internal/api/middleware"
	"tootsched/internal/db"
	job "tootsched/internal/jobs"
	"tootsched/internal/queue"
	"tootsched/internal/repository"
	"tootsched/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("Invalid timezone %q: %v", cfg.Timezone, err)
	}

	database, err := db.Connect(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(database)

	if err := db.RunMigrations(context.Background(), database, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)

	postRepo := repository.NewPostRepository(database)
	credsRepo := repository.NewCredentialsRepository(database)

	accountService := service.NewAccountService(*cfg, credsRepo)
	mastodonService := service.NewMastodonService(accountService)
	storageService := service.NewStorageService(*cfg)
	mediaService, err := service.NewMediaService(cfg.UploadDir, storageService)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	runner := queue.NewRunner(client, inspector)
	postService := service.NewPostService(postRepo, runner, mediaService, mastodonService, location, cfg.MaxContentLen)

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024, // 16 MB, matches the upload limit
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	post := handlers.NewPostHandler(postService)
	account := handlers.NewAccountHandler(accountService, mastodonService)

	// The display client polls unauthenticated, as does media serving.
	app.Get("/api/next_post", post.NextPost)
	app.Static("/uploads", cfg.UploadDir)

	api := app.Group("/api")
	api.Use(authMiddleware.RequireSession())

	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Put("/posts/:id", post.EditPost)
	api.Delete("/posts/:id", post.RemovePost)

	api.Get("/account", account.Info)
	api.Post("/account/credentials", account.SetCredentials)
	api.Post("/account/connect", account.Connect)
	app.Get("/api/account/callback", account.Callback)

	// cron jobs
	janitor := job.NewUploadJanitor(postRepo, cfg.UploadDir)

	c := cron.New()
	c.AddFunc("@every 1h", janitor.Sweep)
	c.Start()
	defer c.Stop()

	worker := queue.NewWorker(postRepo, mastodonService, mediaService)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
			Queues:      map[string]int{queue.QueuePosts: 1},
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPost)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	// Rebuild the timer set from the posts table. Past-due records fire
	// immediately instead of being dropped.
	recovered, err := postService.Recover(context.Background())
	if err != nil {
		log.Fatalf("Failed to recover scheduled posts: %v", err)
	}
	log.Printf("Re-registered %d scheduled posts", recovered)

	go func() {
		if err := app.Listen(cfg.ServerAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ServerAddr)

	gracefulShutdown(app, database)
}

func closeDB(database *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, database *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(database)
	log.Println("Server shutdown complete.")
}
