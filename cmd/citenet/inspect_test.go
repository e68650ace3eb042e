package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, splitIDs("1, 2,,3 "))
	assert.Equal(t, []string{}, splitIDs(" , "))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["build"])
	assert.True(t, names["fetch"])
	assert.True(t, names["links"])
}

func TestLinksCommand_RejectsUnknownKind(t *testing.T) {
	rootCmd.SetArgs([]string{"links", "123", "--kind", "cocited"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "kind")
}
