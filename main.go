package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connect-four-arena/game"
	"connect-four-arena/handlers"
	"connect-four-arena/middleware"
	"connect-four-arena/models"
	"connect-four-arena/services"
	"connect-four-arena/utils"
	"connect-four-arena/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOriginsString,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.UserProfile{},
		&models.GameRecord{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	store := services.NewGameStore(db)

	authURL := os.Getenv("SUPABASE_URL")
	authKey := os.Getenv("SUPABASE_ANON_KEY")
	if authURL == "" {
		log.Fatal("SUPABASE_URL environment variable not set")
	}
	authClient := services.NewAuthClient(authURL, authKey)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var archiver *workers.ReplayArchiver
	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  Replay archive disabled: %v", err)
	} else {
		archiver = workers.NewReplayArchiver()
		go archiver.Run(ctx)
	}

	var manager *game.Manager
	if archiver != nil {
		manager = game.NewManager(store, archiver)
	} else {
		manager = game.NewManager(store, nil)
	}
	go manager.Run(ctx)

	services.StartRoomSweeper(manager)

	handlers.SetupRoutes(app, manager, store, authClient)
	handlers.SetupWebSocket(app, manager)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Websocket gateway mounted at /ws")
	log.Println("✅ Room sweeper running (every 1m)")

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
