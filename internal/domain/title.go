package domain

import "time"

// TitleGrant is a temporary custom chat title keyed by (user, chat). The
// sweep job removes the row once ExpiresAt has passed and revokes the
// external chat privilege.
type TitleGrant struct {
	UserID    int64     `bson:"user_id" json:"user_id"`
	ChatID    int64     `bson:"chat_id" json:"chat_id"`
	Title     string    `bson:"title" json:"title"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
