package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendedMemoryLimitMB(t *testing.T) {
	tests := []struct {
		totalMB int
		want    int
	}{
		{0, 512},
		{-1, 512},
		{256, 256},
		{600, 512},
		{8192, 6144},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecommendedMemoryLimitMB(tt.totalMB), "total %d", tt.totalMB)
	}
}
