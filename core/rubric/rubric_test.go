package rubric

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRubric_Criterion(t *testing.T) {
	for _, code := range []string{"D", "O", "X", "L"} {
		c, ok := Default.Criterion(code)
		assert.True(t, ok, code)
		assert.Equal(t, code, c.Code)
	}

	_, ok := Default.Criterion("Z")
	assert.False(t, ok)
}

func TestRubric_Criteria(t *testing.T) {
	codes := make([]string, 0)
	for _, c := range Default.Criteria() {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"D", "O", "X", "L"}, codes)
}

func TestRubric_ValidScore(t *testing.T) {
	tests := []struct {
		score int
		want  bool
	}{
		{-1, false},
		{0, false},
		{1, true},
		{2, true},
		{3, true},
		{4, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Default.ValidScore(tt.score), "score %d", tt.score)
	}
}

func TestRubric_GradeFor(t *testing.T) {
	tests := []struct {
		name      string
		composite float64
		want      string
	}{
		{"zero", 0, "C"},
		{"floor", 4, "C"},
		{"just below B", 6.9, "C"},
		{"B boundary is inclusive", 7, "B"},
		{"mid B", 9.9, "B"},
		{"A boundary is inclusive", 10, "A"},
		{"ceiling", 12, "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default.GradeFor(tt.composite).Grade)
		})
	}
}
