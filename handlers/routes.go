package handlers

import (
	"log"

	"connect-four-arena/game"
	"connect-four-arena/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes mounts the REST surface: service status, health, the
// leaderboard read API and the signup proxy.
func SetupRoutes(app *fiber.App, manager *game.Manager, store *services.GameStore, auth *services.AuthClient) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "Server running",
			"players": manager.ActivePlayers(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		rows, err := store.Leaderboard(10)
		if err != nil {
			log.Printf("Leaderboard error: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch leaderboard"})
		}
		return c.JSON(rows)
	})

	app.Get("/stats/:userID", func(c *fiber.Ctx) error {
		row, err := store.UserStats(c.Params("userID"))
		if err != nil {
			log.Printf("Stats error: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch stats"})
		}
		if row == nil {
			return c.Status(404).JSON(fiber.Map{"error": "No games recorded"})
		}
		return c.JSON(row)
	})

	app.Post("/auth/signup", func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Username string `json:"username"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Email == "" || req.Password == "" || req.Username == "" {
			return c.Status(400).JSON(fiber.Map{"error": "email, password and username are required"})
		}

		user, err := auth.SignUp(req.Email, req.Password)
		if err != nil {
			log.Printf("Signup error: %v", err)
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}

		if err := store.CreateUserProfile(user.ID, req.Username); err != nil {
			log.Printf("Error creating user profile: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to create user profile"})
		}

		log.Printf("User profile created: %s", req.Username)
		return c.JSON(fiber.Map{"success": true, "user": user})
	})
}
