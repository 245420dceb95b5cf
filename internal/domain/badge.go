package domain

// Badge is attached to a ranked entity for display.
// Trending and Rising are computed per snapshot; Featured is curated by admins
// and only ever comes in as input. AI is reserved and never assigned.
type Badge string

const (
	BadgeNone     Badge = "none"
	BadgeTrending Badge = "trending"
	BadgeRising   Badge = "rising"
	BadgeFeatured Badge = "featured"
	BadgeAI       Badge = "ai"
)

func (b Badge) Computed() bool { return b == BadgeTrending || b == BadgeRising }

// Ranked is one position in a composed ranking.
type Ranked struct {
	Entity Entity  `json:"entity"`
	Score  float64 `json:"score"`
	Delta  float64 `json:"delta"`
	Rank   int     `json:"rank"`
	Badge  Badge   `json:"badge"`
}
