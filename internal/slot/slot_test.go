package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToIndexBoundaries(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	midnight := time.Date(2025, 1, 6, 0, 0, 0, 0, loc)
	assert.Equal(t, 0, ToIndex(midnight, loc))
	assert.Equal(t, 95, ToIndex(time.Date(2025, 1, 6, 23, 59, 0, 0, loc), loc))
	assert.Equal(t, 32, ToIndex(time.Date(2025, 1, 6, 8, 0, 0, 0, loc), loc))
	assert.Equal(t, 32, ToIndex(time.Date(2025, 1, 6, 8, 14, 59, 0, loc), loc))

	// 同一时刻在不同时区落在不同的时间片
	assert.Equal(t, 0, ToIndex(time.Date(2025, 1, 6, 16, 0, 0, 0, time.UTC), loc))
}

func TestToIndexMonotonicOverDay(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	prev := -1
	for m := 0; m < 24*60; m++ {
		idx := ToIndex(start.Add(time.Duration(m)*time.Minute), time.UTC)
		require.GreaterOrEqual(t, idx, prev, "minute %d", m)
		require.GreaterOrEqual(t, idx, 0)
		require.LessOrEqual(t, idx, Last)
		prev = idx
	}
}

func TestForDuration(t *testing.T) {
	for start := 0; start < PerDay; start++ {
		for _, d := range []int{1, 14, 15, 16, 30, 45, 60, 61, 120} {
			slots := ForDuration(start, d)
			require.Len(t, slots, (d+14)/15)
			for i, s := range slots {
				require.Equal(t, start+i, s)
			}
		}
	}

	assert.Empty(t, ForDuration(10, 0))
	assert.Equal(t, []int{32, 33, 34, 35}, ForDuration(32, 60))
}

func TestHasStartInShift(t *testing.T) {
	assert.True(t, HasStartInShift(32, 32, 64))
	assert.True(t, HasStartInShift(63, 32, 64))
	assert.False(t, HasStartInShift(64, 32, 64))
	assert.False(t, HasStartInShift(31, 32, 64))
}

func TestValidRange(t *testing.T) {
	assert.True(t, ValidRange(0, 0))
	assert.True(t, ValidRange(0, 95))
	assert.False(t, ValidRange(-1, 3))
	assert.False(t, ValidRange(5, 4))
	assert.False(t, ValidRange(90, 96))
}

func TestShiftBounds(t *testing.T) {
	start, end, err := ShiftBounds("08:00:00", "16:00:00")
	require.NoError(t, err)
	assert.Equal(t, 32, start)
	assert.Equal(t, 64, end)

	start, end, err = ShiftBounds("19:00:00", "24:00:00")
	require.NoError(t, err)
	assert.Equal(t, 76, start)
	assert.Equal(t, PerDay, end)

	// 不足一个时间片的尾巴不算在班次内
	_, end, err = ShiftBounds("13:30:00", "16:10:00")
	require.NoError(t, err)
	assert.Equal(t, 64, end)

	_, _, err = ShiftBounds("16:00:00", "08:00:00")
	assert.Error(t, err)

	_, _, err = ShiftBounds("8am", "16:00:00")
	assert.Error(t, err)
}

func TestBitmapFreeStarts(t *testing.T) {
	b := RangeMask(32, 35).Union(RangeMask(40, 40))

	free := b.Free()
	require.Len(t, free, PerDay)
	assert.True(t, free[31])
	assert.False(t, free[32])
	assert.False(t, free[35])
	assert.True(t, free[36])

	starts := b.FreeStarts(4)
	assert.Contains(t, starts, 28)
	assert.NotContains(t, starts, 29)
	assert.Contains(t, starts, 36)
	assert.NotContains(t, starts, 37)
	assert.Contains(t, starts, 41)
	assert.Equal(t, 92, starts[len(starts)-1])

	assert.Len(t, Bitmap{}.FreeStarts(0), PerDay)
}

func TestBitmapRedisBitOrder(t *testing.T) {
	b := RangeMask(0, 0).Union(RangeMask(9, 9)).Union(RangeMask(95, 95))
	raw := b.Bytes()
	require.Len(t, raw, 12)
	assert.Equal(t, byte(0x80), raw[0])
	assert.Equal(t, byte(0x40), raw[1])
	assert.Equal(t, byte(0x01), raw[11])
	assert.Equal(t, b, FromBytes(raw))

	assert.Equal(t, Bitmap{}, FromBytes(nil))
}

func TestBitmapOverlapAndClear(t *testing.T) {
	a := RangeMask(60, 70)
	assert.True(t, a.Overlaps(RangeMask(70, 80)))
	assert.False(t, a.Overlaps(RangeMask(71, 80)))
	assert.Equal(t, Bitmap{}, a.Clear(RangeMask(60, 70)))
	assert.Equal(t, RangeMask(60, 63), a.Clear(RangeMask(64, 70)))
}

func TestStartTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	day := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 6, 8, 0, 0, 0, loc), StartTime(day, 32, loc))
	assert.Equal(t, time.Date(2025, 1, 6, 23, 45, 0, 0, loc), StartTime(day, Last, loc))
	// 最后一个时间片的结束时刻是第二天零点
	assert.Equal(t, time.Date(2025, 1, 7, 0, 0, 0, 0, loc), StartTime(day, Last+1, loc))

	for i := 0; i <= Last; i++ {
		assert.Equal(t, i, ToIndex(StartTime(day, i, loc), loc))
	}
}
