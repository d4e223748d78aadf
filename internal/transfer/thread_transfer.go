package transfer

import "github.com/golang-jwt/jwt/v5"

type TweetInput struct {
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ThreadCreation struct {
	Tweets        []TweetInput `json:"tweets"`
	ScheduledTime string       `json:"scheduled_time,omitempty"`
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
