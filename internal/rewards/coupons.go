// Package rewards generates spending-reward coupons. When an expense lands in
// a category with partner brands, the router attaches a coupon to its reply.
package rewards

import (
	"fmt"
	"math/rand"
	"strings"
)

// brandsByCategory lists the partner brands eligible per expense category.
// Categories absent from the map never earn a coupon.
var brandsByCategory = map[string][]string{
	"shopping":  {"Amazon", "Target", "Walmart"},
	"dining":    {"Starbucks", "Chipotle", "Domino's"},
	"transport": {"Uber", "Lyft", "Shell"},
	"health":    {"CVS", "Walgreens"},
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Coupon is a single generated reward.
type Coupon struct {
	Brand    string
	Code     string
	Discount int // percent off
}

// Message renders the coupon as user-facing reply text.
func (c Coupon) Message() string {
	return fmt.Sprintf("You've earned a reward! %d%% off at %s with code %s.",
		c.Discount, c.Brand, c.Code)
}

// Generator produces coupons from a seeded random source, injected so tests
// can pin the draw.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a coupon generator backed by src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// For returns a coupon for the given expense category, or false when the
// category has no partner brands.
func (g *Generator) For(category string) (Coupon, bool) {
	brands, ok := brandsByCategory[strings.ToLower(category)]
	if !ok || len(brands) == 0 {
		return Coupon{}, false
	}

	return Coupon{
		Brand:    brands[g.rng.Intn(len(brands))],
		Code:     g.code(8),
		Discount: 5 + 5*g.rng.Intn(4), // 5 to 20 percent in steps of 5
	}, true
}

func (g *Generator) code(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(codeAlphabet[g.rng.Intn(len(codeAlphabet))])
	}
	return b.String()
}
