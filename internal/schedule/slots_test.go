package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDailySlotsGrid(t *testing.T) {
	slots := DailySlots()

	assert.Len(t, slots, 16)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "17:00", slots[len(slots)-1])

	// chronological, no duplicates
	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1], slots[i])
	}

	// lunch gap excluded
	assert.NotContains(t, slots, "12:00")
	assert.NotContains(t, slots, "12:30")
	assert.NotContains(t, slots, "13:00")
}

func TestDailySlotsReturnsCopy(t *testing.T) {
	slots := DailySlots()
	slots[0] = "00:00"
	assert.Equal(t, "08:00", DailySlots()[0])
}

func TestIsClinicSlot(t *testing.T) {
	assert.True(t, IsClinicSlot("08:00"))
	assert.True(t, IsClinicSlot("13:30"))
	assert.False(t, IsClinicSlot("12:00"))
	assert.False(t, IsClinicSlot("8:00"))
	assert.False(t, IsClinicSlot("08:15"))
	assert.False(t, IsClinicSlot(""))
}
