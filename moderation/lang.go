package moderation

import "github.com/abadojack/whatlanggo"

// Detector tags messages with the ISO 639-1 code of their detected language.
type Detector struct{}

func NewDetector() Detector {
	return Detector{}
}

// Detect returns the ISO 639-1 code of the most likely language, or an empty
// string when detection is inconclusive.
func (Detector) Detect(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
