package domain

import "time"

// Registration defaults applied when an account is created lazily on first
// balance or profile read.
const (
	DefaultBalance = 100.0
	DefaultLevel   = 1
)

// DiscountTiers enumerates the allowed purchase-discount percentages.
var DiscountTiers = []int{0, 5, 10, 20}

// DiscountTierPrices is the coin price of each purchasable discount tier.
// Tier 0 is the registration default and cannot be bought.
var DiscountTierPrices = map[int]float64{
	5:  5000,
	10: 10000,
	20: 20000,
}

// Account is the per-user ledger record. Accounts are created lazily and
// never deleted. Balance is clamped at zero by every mutation path.
type Account struct {
	UserID       int64      `bson:"user_id" json:"user_id"`
	Balance      float64    `bson:"balance" json:"balance"`
	XP           int        `bson:"xp" json:"xp"`
	Level        int        `bson:"level" json:"level"`
	DiscountTier int        `bson:"discount_tier" json:"discount_tier"`
	LastCaseOpen *time.Time `bson:"last_case_open,omitempty" json:"last_case_open,omitempty"`
	Role         string     `bson:"role" json:"role"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

// ValidDiscountTier reports whether tier is one of the allowed percentages.
func ValidDiscountTier(tier int) bool {
	for _, t := range DiscountTiers {
		if t == tier {
			return true
		}
	}
	return false
}
