package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule_Wildcard(t *testing.T) {
	s, err := ParseSchedule("* * * * *")
	require.NoError(t, err)
	assert.True(t, s.Matches(time.Date(2026, 8, 2, 3, 17, 0, 0, time.UTC)))
	assert.Equal(t, "* * * * *", s.String())
}

func TestParseSchedule_ExactFields(t *testing.T) {
	s, err := ParseSchedule("30 9 1 1 *")
	require.NoError(t, err)
	assert.True(t, s.Matches(time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 1, 1, 9, 31, 0, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)))
}

func TestParseSchedule_List(t *testing.T) {
	s, err := ParseSchedule("0,15,30,45 * * * *")
	require.NoError(t, err)
	assert.True(t, s.Matches(time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 1, 1, 0, 16, 0, 0, time.UTC)))
}

func TestParseSchedule_Range(t *testing.T) {
	s, err := ParseSchedule("* 9-17 * * *")
	require.NoError(t, err)
	assert.True(t, s.Matches(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, s.Matches(time.Date(2026, 1, 1, 17, 0, 0, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)))
}

func TestParseSchedule_Step(t *testing.T) {
	s, err := ParseSchedule("*/15 * * * *")
	require.NoError(t, err)
	assert.True(t, s.Matches(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, s.Matches(time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)))
	assert.False(t, s.Matches(time.Date(2026, 1, 1, 0, 20, 0, 0, time.UTC)))
}

func TestParseSchedule_DayOfWeekSundayAliases(t *testing.T) {
	// 2026-08-02 is a Sunday.
	s, err := ParseSchedule("0 0 * * 7")
	require.NoError(t, err)
	assert.True(t, s.Matches(time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)))

	s0, err := ParseSchedule("0 0 * * 0")
	require.NoError(t, err)
	assert.True(t, s0.Matches(time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)))
}

func TestParseSchedule_WrongFieldCount(t *testing.T) {
	_, err := ParseSchedule("* * *")
	assert.Error(t, err)
}

func TestParseSchedule_OutOfRange(t *testing.T) {
	_, err := ParseSchedule("60 * * * *")
	assert.Error(t, err)
}

func TestParseSchedule_InvalidStep(t *testing.T) {
	_, err := ParseSchedule("*/0 * * * *")
	assert.Error(t, err)
}

func TestCronEntry_Location(t *testing.T) {
	var entry CronEntry
	assert.Equal(t, time.Local, entry.Location())

	tz, err := time.LoadLocation("UTC")
	require.NoError(t, err)
	entry.TZ = tz
	assert.Equal(t, tz, entry.Location())
}

func TestFireKey(t *testing.T) {
	key := FireKey("cron/daily.cron", time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, "cron/daily.cron@202608020930", key)
}
