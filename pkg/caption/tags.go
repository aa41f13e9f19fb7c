package caption

import (
	"regexp"
	"sort"
	"strings"
)

type tagCategory struct {
	name string
	re   *regexp.Regexp
}

func wordsPattern(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`)
}

// tagCategories are matched against the lowercased caption in this order.
var tagCategories = []tagCategory{
	{"people", wordsPattern("person", "people", "man", "woman", "child", "boy", "girl", "baby", "adult")},
	{"actions", wordsPattern("running", "walking", "sitting", "standing", "jumping", "dancing", "playing", "working",
		"exercising", "cooking", "reading", "writing", "driving", "riding", "swimming", "flying", "climbing", "lifting",
		"pushing", "pulling", "throwing", "catching", "kicking", "hitting")},
	{"sports", wordsPattern("football", "basketball", "tennis", "soccer", "baseball", "golf", "hockey", "volleyball",
		"boxing", "wrestling", "cycling", "skiing", "surfing", "skateboarding", "yoga", "gym", "fitness", "workout",
		"exercise", "bench press", "squats", "deadlift")},
	{"locations", wordsPattern("park", "beach", "street", "road", "building", "house", "office", "school", "hospital",
		"restaurant", "store", "mall", "gym", "stadium", "field", "court", "track", "pool", "lake", "river", "mountain",
		"forest", "desert", "city", "town", "village")},
	{"objects", wordsPattern("car", "truck", "bike", "bicycle", "motorcycle", "bus", "train", "plane", "boat", "chair",
		"table", "bed", "computer", "phone", "camera", "book", "ball", "bottle", "cup", "plate", "food", "tree",
		"flower", "animal", "dog", "cat", "bird")},
	{"weather", wordsPattern("sunny", "cloudy", "rainy", "snowy", "foggy", "windy", "storm", "clear", "bright", "dark",
		"day", "night", "morning", "afternoon", "evening", "sunset", "sunrise")},
	{"colors", wordsPattern("red", "blue", "green", "yellow", "orange", "purple", "pink", "black", "white", "gray",
		"grey", "brown", "silver", "gold")},
	{"emotions", wordsPattern("happy", "sad", "angry", "excited", "surprised", "calm", "peaceful", "energetic", "tired",
		"focused", "concentrated", "relaxed")},
}

// ExtractTags returns the unique known words found in caption, sorted.
func ExtractTags(caption string) []string {
	low := strings.ToLower(caption)
	seen := map[string]struct{}{}
	tags := []string{}
	for _, cat := range tagCategories {
		for _, m := range cat.re.FindAllString(low, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			tags = append(tags, m)
		}
	}
	sort.Strings(tags)
	return tags
}

// TagCategory returns the first category that recognizes tag, or "" if none does.
func TagCategory(tag string) string {
	for _, cat := range tagCategories {
		if loc := cat.re.FindStringIndex(tag); loc != nil && loc[0] == 0 && loc[1] == len(tag) {
			return cat.name
		}
	}
	return ""
}
