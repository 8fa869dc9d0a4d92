package progression

// Tier maps a verified follower-count range to a level and its unlocks.
// Min is inclusive; the next tier's Min is the exclusive upper bound. The
// final tier is unbounded above, so every non-negative count lands in
// exactly one tier.
type Tier struct {
	Min          int
	Level        int
	Seeds        []string
	Achievements []string
}

var tiers = []Tier{
	{Min: 0, Level: 1},
	{Min: 100, Level: 2, Seeds: []string{"silver_seed"}, Achievements: []string{"social_sprout"}},
	{Min: 500, Level: 3, Seeds: []string{"silver_seed"}, Achievements: []string{"social_sprout"}},
	{Min: 1000, Level: 4, Seeds: []string{"silver_seed", "gold_seed"}, Achievements: []string{"social_sprout", "community_bloom"}},
	{Min: 5000, Level: 5, Seeds: []string{"silver_seed", "gold_seed"}, Achievements: []string{"social_sprout", "community_bloom"}},
	{Min: 10000, Level: 6, Seeds: []string{"silver_seed", "gold_seed", "diamond_seed"}, Achievements: []string{"social_sprout", "community_bloom", "garden_influencer"}},
	{Min: 50000, Level: 7, Seeds: []string{"silver_seed", "gold_seed", "diamond_seed"}, Achievements: []string{"social_sprout", "community_bloom", "garden_influencer"}},
	{Min: 100000, Level: 8, Seeds: []string{"silver_seed", "gold_seed", "diamond_seed", "legendary_seed"}, Achievements: []string{"social_sprout", "community_bloom", "garden_influencer", "social_legend"}},
}

// TierFor returns the tier for a verified follower count. Negative counts
// clamp to the first tier.
func TierFor(followers int) Tier {
	cur := tiers[0]
	for _, t := range tiers[1:] {
		if followers < t.Min {
			break
		}
		cur = t
	}
	return cur
}

// Tiers returns the full ordered table.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}
