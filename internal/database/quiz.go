package database

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuizKind tags the five independent quiz outcomes a profile can carry
type QuizKind string

const (
	QuizArchetype QuizKind = "archetype"
	QuizMBTI      QuizKind = "mbti"
	QuizCognitive QuizKind = "cognitive_style"
	QuizPolitical QuizKind = "political_compass"
	QuizEnneagram QuizKind = "enneagram"
	QuizBigFive   QuizKind = "big_five"
)

// QuizResult is the decoded form of one stored quiz outcome. Exactly one of
// the payload fields is set, matching Kind.
type QuizResult struct {
	Kind    QuizKind
	Label   string            // archetype, mbti, cognitive_style, enneagram
	Compass *PoliticalCompass // political_compass
	Traits  BigFiveTraits     // big_five
}

// PoliticalCompass is a quadrant label plus the two axis scores
type PoliticalCompass struct {
	Quadrant string  `json:"quadrant"`
	Economic float64 `json:"economic"`
	Social   float64 `json:"social"`
}

// BigFiveTraits maps trait or aspect names to percentages (0-100)
type BigFiveTraits map[string]float64

// DecodeQuizResult decodes the string-encoded column value for the given
// quiz kind. Each kind has its own wire shape; label kinds are plain
// strings, the compass and big-five kinds are JSON documents.
func DecodeQuizResult(kind QuizKind, raw string) (*QuizResult, error) {
	switch kind {
	case QuizArchetype, QuizMBTI, QuizCognitive, QuizEnneagram:
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("empty %s result", kind)
		}
		return &QuizResult{Kind: kind, Label: label}, nil
	case QuizPolitical:
		compass, err := DecodePoliticalCompass(raw)
		if err != nil {
			return nil, err
		}
		return &QuizResult{Kind: kind, Compass: compass}, nil
	case QuizBigFive:
		traits, err := DecodeBigFive(raw)
		if err != nil {
			return nil, err
		}
		return &QuizResult{Kind: kind, Traits: traits}, nil
	default:
		return nil, fmt.Errorf("unknown quiz kind: %s", kind)
	}
}

// DecodePoliticalCompass decodes the JSON political-compass column
func DecodePoliticalCompass(raw string) (*PoliticalCompass, error) {
	var compass PoliticalCompass
	if err := json.Unmarshal([]byte(raw), &compass); err != nil {
		return nil, fmt.Errorf("failed to decode political compass: %w", err)
	}
	if compass.Quadrant == "" {
		return nil, fmt.Errorf("political compass missing quadrant")
	}
	return &compass, nil
}

// DecodeBigFive decodes the JSON big-five column
func DecodeBigFive(raw string) (BigFiveTraits, error) {
	var traits BigFiveTraits
	if err := json.Unmarshal([]byte(raw), &traits); err != nil {
		return nil, fmt.Errorf("failed to decode big five traits: %w", err)
	}
	if len(traits) == 0 {
		return nil, fmt.Errorf("big five result has no traits")
	}
	return traits, nil
}

// EncodeQuizResult is the inverse of DecodeQuizResult, producing the
// string-encoded column value
func EncodeQuizResult(result *QuizResult) (string, error) {
	switch result.Kind {
	case QuizArchetype, QuizMBTI, QuizCognitive, QuizEnneagram:
		if result.Label == "" {
			return "", fmt.Errorf("empty %s label", result.Kind)
		}
		return result.Label, nil
	case QuizPolitical:
		if result.Compass == nil {
			return "", fmt.Errorf("political compass result has no payload")
		}
		data, err := json.Marshal(result.Compass)
		return string(data), err
	case QuizBigFive:
		if len(result.Traits) == 0 {
			return "", fmt.Errorf("big five result has no payload")
		}
		data, err := json.Marshal(result.Traits)
		return string(data), err
	default:
		return "", fmt.Errorf("unknown quiz kind: %s", result.Kind)
	}
}
