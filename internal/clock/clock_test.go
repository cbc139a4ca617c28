package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveEnd_BeforeCloseTrimsToPriorDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, loc) // 10:00, before 16:00 close
	target := time.Date(2024, 1, 10, 0, 0, 0, 0, loc)

	got := EffectiveEnd(now, target, loc, 16)
	assert.True(t, got.Equal(time.Date(2024, 1, 9, 0, 0, 0, 0, loc)))
}

func TestEffectiveEnd_AfterCloseKeepsToday(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 1, 10, 17, 0, 0, 0, loc) // after 16:00 close
	target := time.Date(2024, 1, 10, 0, 0, 0, 0, loc)

	got := EffectiveEnd(now, target, loc, 16)
	assert.True(t, got.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, loc)))
}

func TestEffectiveEnd_PastTargetUnaffectedByCloseHour(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 1, 10, 10, 0, 0, 0, loc)
	target := time.Date(2024, 1, 5, 0, 0, 0, 0, loc) // not today, rule doesn't apply

	got := EffectiveEnd(now, target, loc, 16)
	assert.True(t, got.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, loc)))
}
