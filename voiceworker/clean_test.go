package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText_StripsEmoji(t *testing.T) {
	got := CleanText("Parabéns! 🎉🎉 Você passou! 🚀", 500)
	assert.Equal(t, "Parabéns! Você passou!", got)
}

func TestCleanText_KeepsAccentsAndPunctuation(t *testing.T) {
	got := CleanText(`Não é "fácil", né? (sério: 100%)`, 500)
	assert.Equal(t, `Não é "fácil", né? (sério: 100)`, got)
}

func TestCleanText_CapsDotRuns(t *testing.T) {
	assert.Equal(t, "Hmm..", CleanText("Hmm.....", 500))
	assert.Equal(t, "Ok. Tudo bem.", CleanText("Ok. Tudo bem.", 500))
}

func TestCleanText_DropsEllipsisRune(t *testing.T) {
	assert.Equal(t, "Então", CleanText("Então…", 500))
	assert.Equal(t, "Então é isso", CleanText("Então… é isso", 500))
}

func TestCleanText_CollapsesWhitespace(t *testing.T) {
	got := CleanText("  oi \t\n  tudo   bem ", 500)
	assert.Equal(t, "oi tudo bem", got)
}

func TestCleanText_CapsLengthInRunes(t *testing.T) {
	long := strings.Repeat("é", 600)
	got := CleanText(long, 500)
	assert.Equal(t, 500, len([]rune(got)))

	// A zero cap disables truncation.
	assert.Equal(t, long, CleanText(long, 0))
}

func TestCleanText_EmptyAfterCleaning(t *testing.T) {
	assert.Equal(t, "", CleanText("🎉 💀 🔥", 500))
	assert.Equal(t, "", CleanText("", 500))
}
