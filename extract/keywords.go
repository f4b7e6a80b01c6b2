package extract

// categoryKeywords maps each topic category to the keywords that trigger
// it. Kept as data rather than control flow so the table can be tested and
// tuned independently of the extraction logic. Order is fixed to keep
// category output deterministic.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"work", []string{"work", "job", "office", "meeting", "project", "colleague", "boss", "client", "deadline"}},
	{"family", []string{"mom", "dad", "sister", "brother", "family", "parent", "child", "grandmother", "grandfather"}},
	{"friends", []string{"friend", "buddy", "hang out", "party", "social", "catch up"}},
	{"hobbies", []string{"hobby", "learn", "practice", "play", "game", "sport", "music", "art", "craft"}},
	{"health", []string{"doctor", "exercise", "gym", "sick", "medicine", "therapy", "workout", "diet"}},
	{"travel", []string{"trip", "vacation", "travel", "visit", "flight", "hotel", "airport", "destination"}},
	{"food", []string{"restaurant", "cook", "eat", "recipe", "dinner", "lunch", "breakfast", "meal"}},
	{"relationships", []string{"date", "relationship", "love", "partner", "boyfriend", "girlfriend", "spouse"}},
	{"learning", []string{"study", "book", "course", "school", "university", "lesson", "tutorial"}},
	{"nature", []string{"hike", "mountain", "beach", "forest", "garden", "sunset", "ocean", "outdoors", "lake"}},
	{"personal", []string{"feel", "think", "remember", "dream", "goal", "plan", "decision"}},
}

// importantCategories carry an extra importance boost when matched.
var importantCategories = map[string]bool{
	"work":          true,
	"family":        true,
	"relationships": true,
	"health":        true,
}

// DefaultCategory is assigned when nothing else matched.
const DefaultCategory = "personal"
