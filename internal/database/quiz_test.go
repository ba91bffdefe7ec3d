package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQuizResult_Labels(t *testing.T) {
	for _, kind := range []QuizKind{QuizArchetype, QuizMBTI, QuizCognitive, QuizEnneagram} {
		t.Run(string(kind), func(t *testing.T) {
			result, err := DecodeQuizResult(kind, " sage ")
			require.NoError(t, err)
			assert.Equal(t, kind, result.Kind)
			assert.Equal(t, "sage", result.Label)
		})
	}
}

func TestDecodeQuizResult_EmptyLabel(t *testing.T) {
	_, err := DecodeQuizResult(QuizArchetype, "   ")
	assert.Error(t, err)
}

func TestDecodeQuizResult_PoliticalCompass(t *testing.T) {
	raw := `{"quadrant":"lib-left","economic":-4.2,"social":-3.1}`

	result, err := DecodeQuizResult(QuizPolitical, raw)
	require.NoError(t, err)
	require.NotNil(t, result.Compass)
	assert.Equal(t, "lib-left", result.Compass.Quadrant)
	assert.InDelta(t, -4.2, result.Compass.Economic, 0.001)
	assert.InDelta(t, -3.1, result.Compass.Social, 0.001)
}

func TestDecodePoliticalCompass_MissingQuadrant(t *testing.T) {
	_, err := DecodePoliticalCompass(`{"economic":1.0,"social":2.0}`)
	assert.Error(t, err)
}

func TestDecodeQuizResult_BigFive(t *testing.T) {
	raw := `{"openness":82.5,"conscientiousness":61,"extraversion":40,"agreeableness":75,"neuroticism":30}`

	result, err := DecodeQuizResult(QuizBigFive, raw)
	require.NoError(t, err)
	assert.Len(t, result.Traits, 5)
	assert.InDelta(t, 82.5, result.Traits["openness"], 0.001)
}

func TestDecodeBigFive_Empty(t *testing.T) {
	_, err := DecodeBigFive(`{}`)
	assert.Error(t, err)
}

func TestDecodeQuizResult_UnknownKind(t *testing.T) {
	_, err := DecodeQuizResult(QuizKind("astrology"), "leo")
	assert.Error(t, err)
}

func TestEncodeQuizResult_RoundTrip(t *testing.T) {
	tests := []*QuizResult{
		{Kind: QuizMBTI, Label: "INTJ"},
		{Kind: QuizPolitical, Compass: &PoliticalCompass{Quadrant: "auth-right", Economic: 3.5, Social: 2.0}},
		{Kind: QuizBigFive, Traits: BigFiveTraits{"openness": 70}},
	}

	for _, original := range tests {
		t.Run(string(original.Kind), func(t *testing.T) {
			encoded, err := EncodeQuizResult(original)
			require.NoError(t, err)

			decoded, err := DecodeQuizResult(original.Kind, encoded)
			require.NoError(t, err)
			assert.Equal(t, original, decoded)
		})
	}
}

func TestEncodeQuizResult_MissingPayload(t *testing.T) {
	_, err := EncodeQuizResult(&QuizResult{Kind: QuizPolitical})
	assert.Error(t, err)

	_, err = EncodeQuizResult(&QuizResult{Kind: QuizArchetype})
	assert.Error(t, err)
}
