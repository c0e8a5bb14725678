package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "(not set)", maskPassword(""))
	assert.Equal(t, "postgres://scan:xxxxx@db:5432/twscan", maskPassword("postgres://scan:secret@db:5432/twscan"))
	assert.Equal(t, "postgres://db/twscan", maskPassword("postgres://db/twscan"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"2330", "2317"}, splitList(" 2330, ,2317,"))
	assert.Nil(t, splitList(""))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"scan", "indicators", "api", "scheduler", "seed", "test-db"} {
		assert.True(t, names[want], want)
	}
}
