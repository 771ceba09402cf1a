package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short text", excerpt("short  text", 20))
	assert.Equal(t, "one two...", excerpt("one two three", 7))
}

func TestExcerpt_MultibyteBoundary(t *testing.T) {
	// Truncation must not split a rune mid-sequence.
	text := "größe und ausdauer im training"
	for max := 1; max < len(text); max++ {
		assert.True(t, utf8.ValidString(excerpt(text, max)), "max=%d", max)
	}
}
