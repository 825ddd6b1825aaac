//go:build linux

package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMemTotalMB(t *testing.T) {
	meminfo := "MemFree:         1024000 kB\nMemTotal:       16384000 kB\n"
	assert.Equal(t, 16000, parseMemTotalMB(strings.NewReader(meminfo)))
	assert.Equal(t, 0, parseMemTotalMB(strings.NewReader("MemFree: 10 kB\n")))
	assert.Equal(t, 0, parseMemTotalMB(strings.NewReader("MemTotal: lots kB\n")))
}
