package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"

	"github.com/shopspring/decimal"
)

// ── Loyalty program rules ───────────────────────────────────────────────────

// EarnRate is the share of a purchase amount credited as points.
var EarnRate = decimal.NewFromFloat(0.1)

const (
	ClientIDPrefix   = "HCL-"
	CardTokenLength  = 12
	MaxTokenAttempts = 10
	CardPagePath     = "/tarjeta-lealtad.html?token="
)

// Levels, highest first.
const (
	LevelVIP    = "VIP"
	LevelOro    = "Oro"
	LevelPlata  = "Plata"
	LevelBronce = "Bronce"
	LevelNuevo  = "Nuevo"
)

var levelThresholds = []struct {
	min   int
	level string
}{
	{800, LevelVIP},
	{500, LevelOro},
	{300, LevelPlata},
	{150, LevelBronce},
}

// Rewards is the closed catalog of redeemable tiers, ascending.
var Rewards = []dto.Reward{
	{Points: 150, Label: "10% descuento"},
	{Points: 300, Label: "$120 descuento"},
	{Points: 500, Label: "$250 descuento"},
	{Points: 800, Label: "$450 descuento / prenda hasta $499"},
}

// LevelFor is the step function from points to level.
func LevelFor(points int) string {
	for _, t := range levelThresholds {
		if points >= t.min {
			return t.level
		}
	}
	return LevelNuevo
}

// PointsFor returns floor(amount x EarnRate).
func PointsFor(amount decimal.Decimal) int {
	return int(amount.Mul(EarnRate).Floor().IntPart())
}

// FindReward looks up a tier by its exact point cost.
func FindReward(points int) (dto.Reward, bool) {
	for _, r := range Rewards {
		if r.Points == points {
			return r, true
		}
	}
	return dto.Reward{}, false
}

// RewardOptions reports, for every tier, whether points cover it.
func RewardOptions(points int) []dto.RewardOption {
	out := make([]dto.RewardOption, 0, len(Rewards))
	for _, r := range Rewards {
		missing := r.Points - points
		if missing < 0 {
			missing = 0
		}
		out = append(out, dto.RewardOption{
			Points: r.Points, Label: r.Label, Available: missing == 0, MissingPoints: missing,
		})
	}
	return out
}

// FormatClientID renders the sequential public id, e.g. HCL-0042.
func FormatClientID(seq int) string {
	return fmt.Sprintf("%s%04d", ClientIDPrefix, seq)
}

// QRLink builds the card URL for a token.
func QRLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + CardPagePath + token
}

// NewCardToken returns CardTokenLength alphanumeric characters drawn from
// crypto/rand, using base64url with the two symbol characters dropped.
func NewCardToken() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 18)
	for sb.Len() < CardTokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, r := range base64.RawURLEncoding.EncodeToString(buf) {
			if r == '-' || r == '_' {
				continue
			}
			sb.WriteRune(r)
			if sb.Len() == CardTokenLength {
				break
			}
		}
	}
	return sb.String(), nil
}
