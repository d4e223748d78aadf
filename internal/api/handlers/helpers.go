package handlers

import (
	"strings"

	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/gofiber/fiber/v2"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// GetCredentials pulls the user's OAuth token pair from the request
// headers. Credentials always arrive explicitly per call; the server
// keeps no ambient session copy.
func GetCredentials(c *fiber.Ctx) twitter.Credentials {
	accessToken := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	return twitter.Credentials{
		AccessToken:  accessToken,
		AccessSecret: c.Get("X-Access-Secret"),
	}
}
