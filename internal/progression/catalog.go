package progression

// SeedType describes an unlockable seed.
type SeedType struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
	Rarity string `json:"rarity"`
}

// AchievementDef describes a verification achievement.
type AchievementDef struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var SeedCatalog = map[string]SeedType{
	"basic":          {ID: "basic", Name: "Basic Seeds", Emoji: "🌱", Rarity: "common"},
	"silver_seed":    {ID: "silver_seed", Name: "Silver Orchid", Emoji: "🌺", Rarity: "uncommon"},
	"gold_seed":      {ID: "gold_seed", Name: "Golden Rose", Emoji: "🌹", Rarity: "rare"},
	"diamond_seed":   {ID: "diamond_seed", Name: "Diamond Lotus", Emoji: "💎", Rarity: "epic"},
	"legendary_seed": {ID: "legendary_seed", Name: "Legendary Tree", Emoji: "🌳", Rarity: "legendary"},
}

var AchievementCatalog = map[string]AchievementDef{
	"social_sprout":     {Key: "social_sprout", Name: "Social Sprout", Description: "Verified 100+ followers", Icon: "🌱"},
	"community_bloom":   {Key: "community_bloom", Name: "Community Bloom", Description: "Verified 1,000+ followers", Icon: "🌸"},
	"garden_influencer": {Key: "garden_influencer", Name: "Garden Influencer", Description: "Verified 10,000+ followers", Icon: "🌟"},
	"social_legend":     {Key: "social_legend", Name: "Social Legend", Description: "Verified 100,000+ followers", Icon: "👑"},
}
