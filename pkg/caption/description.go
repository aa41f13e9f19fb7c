package caption

import (
	"fmt"
	"strings"
)

const maxKeyTags = 5

// genericPeopleTags are left out of the "Key elements" sentence.
var genericPeopleTags = map[string]struct{}{
	"person": {}, "people": {}, "man": {}, "woman": {},
}

// CreateAIDescription expands caption into a few plain sentences built from ctx and tags.
func CreateAIDescription(caption string, ctx SceneContext, tags []string) string {
	parts := []string{caption}

	if ctx.Setting != "" && ctx.Setting != unknown {
		parts = append(parts, fmt.Sprintf("This appears to be an %s scene.", ctx.Setting))
	}
	if ctx.TimeOfDay != "" && ctx.TimeOfDay != unknown {
		parts = append(parts, fmt.Sprintf("The time appears to be %s.", ctx.TimeOfDay))
	}
	if ctx.ActivityLevel != "" && ctx.ActivityLevel != unknown {
		parts = append(parts, fmt.Sprintf("The activity level in the image is %s.", ctx.ActivityLevel))
	}
	if ctx.SocialContext != "" && ctx.SocialContext != unknown {
		if ctx.SocialContext == "group" {
			parts = append(parts, "This involves multiple people or a group setting.")
		} else {
			parts = append(parts, "This focuses on an individual person.")
		}
	}

	var key []string
	for _, t := range tags {
		if _, skip := genericPeopleTags[t]; skip {
			continue
		}
		key = append(key, t)
		if len(key) == maxKeyTags {
			break
		}
	}
	if len(key) > 0 {
		parts = append(parts, fmt.Sprintf("Key elements include: %s.", strings.Join(key, ", ")))
	}
	return strings.Join(parts, " ")
}
