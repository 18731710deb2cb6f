package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medtriage/internal/platform/telegram"
)

// The bot client must satisfy the narrow document-sending contract.
var _ TelegramClient = (*telegram.Client)(nil)

func TestStripMarkup(t *testing.T) {
	card := `<div class="diagnosis-card">
  <div class="diagnosis-header">LIKELY CONDITION</div>
  <div class="diagnosis-content">Viral gastroenteritis.</div>
</div>`

	out := stripMarkup(card)
	assert.Equal(t, "LIKELY CONDITION Viral gastroenteritis.", out)
	assert.NotContains(t, out, "<")

	assert.Equal(t, "plain text stays", stripMarkup("plain text stays"))
}
