package domain

import "time"

// Referral records who invited a user. The referred user id is the unique
// key: a user can only ever be referred once, and the claimed flag makes the
// bonus idempotent.
type Referral struct {
	UserID        int64     `bson:"user_id" json:"user_id"`
	ReferrerID    int64     `bson:"referrer_id" json:"referrer_id"`
	RewardClaimed bool      `bson:"reward_claimed" json:"reward_claimed"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
