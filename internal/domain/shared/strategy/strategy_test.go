package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategyType_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		st    StrategyType
		valid bool
	}{
		{"allocation", StrategyTypeAllocation, true},
		{"credit", StrategyType("credit"), false},
		{"empty", StrategyType(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.st.IsValid())
		})
	}
}

func TestBaseStrategy(t *testing.T) {
	s := NewBaseStrategy("fifo", StrategyTypeAllocation, "oldest first")
	assert.Equal(t, "fifo", s.Name())
	assert.Equal(t, StrategyTypeAllocation, s.Type())
	assert.Equal(t, "allocation", s.Type().String())
	assert.Equal(t, "oldest first", s.Description())
}
