package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"strength keyword", "Progressive strength programming for novices", CategoryExerciseScience},
		{"uppercase input", "HYPERTROPHY RESPONSE TO VOLUME", CategoryExerciseScience},
		{"sleep keyword", "Sleep duration and athletic performance", CategoryRecovery},
		{"fatigue keyword", "Chronic fatigue markers in athletes", CategoryRecovery},
		{"protein keyword", "Daily protein intake recommendations", CategoryNutrition},
		{"hydration keyword", "Hydration strategies for marathon fueling", CategoryNutrition},
		{"no keyword", "Quarterly budget review minutes", CategoryOther},
		{"empty input", "", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.text))
		})
	}
}

// Exercise science is checked before recovery and nutrition, so a document
// matching several categories lands in the highest-priority one.
func TestCategorize_PriorityOrder(t *testing.T) {
	text := "Resistance training improves sleep quality and protein synthesis"
	assert.Equal(t, CategoryExerciseScience, Categorize(text))

	text = "Sleep debt alters protein metabolism"
	assert.Equal(t, CategoryRecovery, Categorize(text))
}

func TestCategorize_Deterministic(t *testing.T) {
	text := "Carbohydrate periodization for endurance athletes"
	first := Categorize(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Categorize(text))
	}
}

func TestExtractKeyInfo(t *testing.T) {
	text := "Creatine and Power Output\nA review of supplementation studies.\n\nMethods were as follows."

	info := ExtractKeyInfo(text)
	assert.Equal(t, "Creatine and Power Output", info.Title)
	assert.Equal(t, "Creatine and Power Output\nA review of supplementation studies.", info.Summary)
}

func TestExtractKeyInfo_SingleParagraph(t *testing.T) {
	info := ExtractKeyInfo("Just one line")
	assert.Equal(t, "Just one line", info.Title)
	assert.Equal(t, "Just one line", info.Summary)
}

func TestExtractKeyInfo_Empty(t *testing.T) {
	info := ExtractKeyInfo("   ")
	assert.Empty(t, info.Title)
	assert.Empty(t, info.Summary)
}
