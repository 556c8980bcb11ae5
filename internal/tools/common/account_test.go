package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{name: "no account", args: map[string]any{}, expected: ""},
		{name: "account", args: map[string]any{"account": "ada@example.com"}, expected: "ada@example.com"},
		{name: "account with other params", args: map[string]any{"account": "work", "other": "value"}, expected: "work"},
		{name: "nil args", args: nil, expected: ""},
		{name: "non-string account", args: map[string]any{"account": 123}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetAccountFromArgs(tt.args))
		})
	}
}

func TestArgAccessors(t *testing.T) {
	args := map[string]any{"text": "hello", "refresh": true, "count": 3}

	assert.Equal(t, "hello", StringArg(args, "text"))
	assert.Empty(t, StringArg(args, "count"))
	assert.Empty(t, StringArg(nil, "text"))
	assert.True(t, BoolArg(args, "refresh"))
	assert.False(t, BoolArg(args, "text"))
	assert.False(t, BoolArg(args, "missing"))
}
