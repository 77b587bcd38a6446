package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	cmd, args, ok := p.ParseCommand("/spin")
	assert.True(t, ok)
	assert.Equal(t, "spin", cmd)
	assert.Empty(t, args)

	cmd, args, ok = p.ParseCommand("/withdraw 500 2200700112345678")
	assert.True(t, ok)
	assert.Equal(t, "withdraw", cmd)
	assert.Equal(t, []string{"500", "2200700112345678"}, args)

	cmd, _, ok = p.ParseCommand("!баланс")
	assert.True(t, ok)
	assert.Equal(t, "баланс", cmd)

	// упоминание бота отрезается
	cmd, _, ok = p.ParseCommand("/spin@spinmarket_bot")
	assert.True(t, ok)
	assert.Equal(t, "spin", cmd)

	// регистр команды нормализуется
	cmd, _, ok = p.ParseCommand("/SPIN")
	assert.True(t, ok)
	assert.Equal(t, "spin", cmd)

	_, _, ok = p.ParseCommand("просто текст")
	assert.False(t, ok)
	_, _, ok = p.ParseCommand("/")
	assert.False(t, ok)
	_, _, ok = p.ParseCommand("   ")
	assert.False(t, ok)
}
