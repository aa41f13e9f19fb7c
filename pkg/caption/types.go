package caption

// AnalysisVersion is stamped into every successful analysis.
const AnalysisVersion = "1.0"

const (
	failedDescription  = "Unable to process this image. Please try again or use a different image."
	noCaptionAvailable = "No caption available"
)

// Caption is one generated caption variant.
type Caption struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ImageProperties describes the decoded source image.
type ImageProperties struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Format      string  `json:"format"`
}

// SceneContext is the heuristic reading of a caption. The zero value encodes as {}.
type SceneContext struct {
	Setting       string `json:"setting,omitempty"`
	TimeOfDay     string `json:"time_of_day,omitempty"`
	ActivityLevel string `json:"activity_level,omitempty"`
	SocialContext string `json:"social_context,omitempty"`
	Mood          string `json:"mood,omitempty"`
}

// Metadata records which backend produced the captions.
type Metadata struct {
	ModelUsed        string `json:"model_used"`
	ProcessingDevice string `json:"processing_device"`
	AnalysisVersion  string `json:"analysis_version"`
}

// Analysis is the full per-image result written to ai_captions.json.
type Analysis struct {
	ID              string           `json:"id,omitempty"`
	Filename        string           `json:"filename"`
	Timestamp       string           `json:"timestamp"`
	Error           string           `json:"error,omitempty"`
	ImageProperties *ImageProperties `json:"image_properties,omitempty"`
	AIDescription   string           `json:"ai_description"`
	Captions        []Caption        `json:"captions"`
	Tags            []string         `json:"tags"`
	SceneContext    SceneContext     `json:"scene_context"`
	RelatedTopics   []string         `json:"related_topics"`
	VisibleText     string           `json:"visible_text,omitempty"`
	Metadata        *Metadata        `json:"metadata,omitempty"`
}

// Failed reports whether a is the error fallback.
func (a Analysis) Failed() bool {
	return a.Error != ""
}

// SimpleCaption is one entry of the backward compatible captions.json.
type SimpleCaption struct {
	Filename string `json:"filename"`
	Caption  string `json:"caption"`
}

// PrimaryCaption returns the first caption text, or a placeholder when there is none.
func PrimaryCaption(a Analysis) string {
	if len(a.Captions) == 0 || a.Captions[0].Text == "" {
		return noCaptionAvailable
	}
	return a.Captions[0].Text
}

// Simplify reduces a to its filename and primary caption.
func Simplify(a Analysis) SimpleCaption {
	return SimpleCaption{Filename: a.Filename, Caption: PrimaryCaption(a)}
}
