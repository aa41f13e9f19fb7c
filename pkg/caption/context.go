package caption

import "strings"

const unknown = "unknown"

type contextRule struct {
	value string
	words []string
}

// Rules are evaluated in order; the first rule with any substring hit wins.
var (
	settingRules = []contextRule{
		{"indoor", []string{"indoor", "inside", "room", "office", "house", "building"}},
		{"outdoor", []string{"outdoor", "outside", "park", "street", "beach", "field", "forest"}},
	}
	timeOfDayRules = []contextRule{
		{"night", []string{"night", "evening", "dark"}},
		{"morning", []string{"morning", "sunrise"}},
		{"day", []string{"afternoon", "day", "sunny", "bright"}},
		{"evening", []string{"sunset", "dusk"}},
	}
	activityRules = []contextRule{
		{"high", []string{"running", "jumping", "dancing", "playing", "exercising", "working out"}},
		{"medium", []string{"walking", "standing", "working"}},
		{"low", []string{"sitting", "lying", "sleeping", "resting"}},
	}
	socialRules = []contextRule{
		{"group", []string{"group", "people", "crowd", "team", "family"}},
		{"individual", []string{"person", "man", "woman", "individual"}},
	}
	moodRules = []contextRule{
		{"positive", []string{"smiling", "happy", "celebrating", "laughing"}},
		{"focused", []string{"focused", "concentrated", "serious", "determined"}},
		{"calm", []string{"relaxed", "calm", "peaceful"}},
	}
)

func firstMatch(text string, rules []contextRule, fallback string) string {
	for _, r := range rules {
		for _, w := range r.words {
			if strings.Contains(text, w) {
				return r.value
			}
		}
	}
	return fallback
}

// AnalyzeSceneContext infers setting, time of day, activity, social context and mood from caption.
func AnalyzeSceneContext(caption string) SceneContext {
	low := strings.ToLower(caption)
	return SceneContext{
		Setting:       firstMatch(low, settingRules, unknown),
		TimeOfDay:     firstMatch(low, timeOfDayRules, unknown),
		ActivityLevel: firstMatch(low, activityRules, unknown),
		SocialContext: firstMatch(low, socialRules, unknown),
		Mood:          firstMatch(low, moodRules, "neutral"),
	}
}
