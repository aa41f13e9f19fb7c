package caption

const maxTopics = 5

type topicRule struct {
	triggers []string
	topics   []string
}

var tagTopicRules = []topicRule{
	{[]string{"running", "exercise", "gym", "fitness"}, []string{"fitness", "health", "exercise routines", "nutrition", "wellness"}},
	{[]string{"beach", "outdoor", "park"}, []string{"outdoor activities", "nature", "travel", "recreation"}},
	{[]string{"sports", "basketball", "football", "tennis"}, []string{"sports", "athletics", "competition", "team activities"}},
}

// GenerateRelatedTopics suggests up to five conversation topics for tags and ctx.
func GenerateRelatedTopics(tags []string, ctx SceneContext) []string {
	have := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		have[t] = struct{}{}
	}
	var topics []string
	for _, rule := range tagTopicRules {
		for _, trig := range rule.triggers {
			if _, ok := have[trig]; ok {
				topics = append(topics, rule.topics...)
				break
			}
		}
	}
	if ctx.Setting == "outdoor" {
		topics = append(topics, "outdoor lifestyle", "fresh air benefits")
	}
	if ctx.ActivityLevel == "high" {
		topics = append(topics, "active lifestyle", "energy", "motivation")
	}
	return uniqueFirst(topics, maxTopics)
}

// uniqueFirst drops repeats, keeping first occurrences, and caps the result at limit.
func uniqueFirst(in []string, limit int) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
