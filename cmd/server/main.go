package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/Akash01010101/threadcraft/configs"
	"github.com/Akash01010101/threadcraft/internal/api/handlers"
	"github.com/Akash01010101/threadcraft/internal/api/middleware"
	job "github.com/Akash01010101/threadcraft/internal/jobs"
	"github.com/Akash01010101/threadcraft/internal/queue"
	"github.com/Akash01010101/threadcraft/internal/ratelimit"
	"github.com/Akash01010101/threadcraft/internal/repository"
	"github.com/Akash01010101/threadcraft/internal/service"
	"github.com/Akash01010101/threadcraft/internal/storage"
	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/Akash01010101/threadcraft/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    10 * 1024 * 1024, // 10 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Access-Secret",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	threadRepo := repository.NewThreadRepository(db)
	blobStore := storage.NewR2Store(*cfg)

	newTwitterClient := func(creds twitter.Credentials) *twitter.Client {
		return twitter.NewClient(cfg.TwitterAPIKey, cfg.TwitterAPISecret, creds)
	}
	clientFactory := func(creds twitter.Credentials) service.PlatformClient {
		return newTwitterClient(creds)
	}

	assembler := service.NewAssembler(blobStore)
	publisher := service.NewPublisher(*cfg, threadRepo, assembler,
		ratelimit.New(3, 5*time.Second), clientFactory)
	threadService := service.NewThreadService(*cfg, threadRepo)

	scheduleDeleteRetry := func(tweetID string, creds twitter.Credentials, wait time.Duration) error {
		encryptedToken, err := utils.Encrypt([]byte(creds.AccessToken), []byte(cfg.SecretKey))
		if err != nil {
			return err
		}
		encryptedSecret, err := utils.Encrypt([]byte(creds.AccessSecret), []byte(cfg.SecretKey))
		if err != nil {
			return err
		}
		return queue.EnqueueDeleteTweet(client, queue.DeleteTweetPayload{
			TweetID:      tweetID,
			AccessToken:  encryptedToken,
			AccessSecret: encryptedSecret,
		}, wait)
	}
	deleter := service.NewDeleter(ratelimit.New(3, time.Second), scheduleDeleteRetry)

	scanJob := job.NewScanJob(threadRepo, publisher)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	thread := handlers.NewThreadHandler(threadService, scanJob, client)
	api.Post("/threads/create", thread.CreateThread)
	api.Get("/threads", thread.ListThreads)
	api.Post("/threads/remove", thread.RemoveThread)
	api.Get("/scheduler/run", thread.RunScheduler)

	tweet := handlers.NewTweetHandler(deleter, newTwitterClient)
	api.Get("/tweets", tweet.ListTweets)
	api.Post("/tweets/remove", tweet.DeleteTweet)
	api.Post("/tweets/cleanup", tweet.CleanupTweets)

	// queue
	queueW := queue.NewQueue(*cfg, threadRepo, publisher, deleter, clientFactory)

	// cron safety net for threads whose queued task was lost
	c := cron.New()
	c.AddFunc("@every 00h01m00s", scanJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishThread, queueW.HandlePublishThreadTask)
		mux.HandleFunc(queue.TaskTypeDeleteTweet, queueW.HandleDeleteTweetTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
