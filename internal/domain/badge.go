package domain

// BadgeTier is the categorical reward derived from a session's correct count.
type BadgeTier string

const (
	BadgeAIWhisperer     BadgeTier = "ai_whisperer"
	BadgeAIDetective     BadgeTier = "ai_detective"
	BadgeGoodSamaritan   BadgeTier = "good_samaritan"
	BadgeJustHuman       BadgeTier = "just_human"
	BadgeHumanInTraining BadgeTier = "human_in_training"
)

// Valid reports whether the tier is one of the five known badges.
func (b BadgeTier) Valid() bool {
	_, ok := badgeCatalog[b]
	return ok
}

// Info returns the tier's static display metadata.
func (b BadgeTier) Info() BadgeInfo {
	return badgeCatalog[b]
}

// BadgeInfo is static display metadata consumed by the UI collaborator.
type BadgeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Rarity      string `json:"rarity"`
}

var badgeCatalog = map[BadgeTier]BadgeInfo{
	BadgeAIWhisperer: {
		Name:        "AI Whisperer",
		Description: "Spotted every single fake. Nothing gets past you.",
		Icon:        "crystal-ball",
		Rarity:      "legendary",
	},
	BadgeAIDetective: {
		Name:        "AI Detective",
		Description: "Five out of six. The machines almost fooled you once.",
		Icon:        "magnifying-glass",
		Rarity:      "epic",
	},
	BadgeGoodSamaritan: {
		Name:        "Good Samaritan",
		Description: "Four correct calls. A solid eye for the real thing.",
		Icon:        "shield",
		Rarity:      "rare",
	},
	BadgeJustHuman: {
		Name:        "Just Human",
		Description: "Three of six. Coin-flip territory, but you showed up.",
		Icon:        "person",
		Rarity:      "common",
	},
	BadgeHumanInTraining: {
		Name:        "Human in Training",
		Description: "The fakes won this round. Study up and try again.",
		Icon:        "sprout",
		Rarity:      "common",
	},
}
