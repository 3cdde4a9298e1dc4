package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fridayEvening = Slot{Date: "2026-03-06", Start: "19:00", End: "21:00"}

func TestSlotValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, fridayEvening.Validate())
	assert.Error(t, Slot{Date: "2026-3-6", Start: "19:00", End: "21:00"}.Validate())
	assert.Error(t, Slot{Date: "2026-03-06", Start: "7pm", End: "21:00"}.Validate())
	assert.Error(t, Slot{Date: "2026-03-06", Start: "21:00", End: "19:00"}.Validate())
	assert.Error(t, Slot{Date: "2026-03-06", Start: "19:00", End: "19:00"}.Validate())
}

func TestGroupSlots(t *testing.T) {
	t.Parallel()

	saturday := Slot{Date: "2026-03-07", Start: "12:00", End: "14:00"}
	groups := GroupSlots([]SlotEntry{
		{Slot: saturday, ParticipantID: 2},
		{Slot: fridayEvening, ParticipantID: 3},
		{Slot: fridayEvening, ParticipantID: 1},
		{Slot: fridayEvening, ParticipantID: 3},
	})

	require.Len(t, groups, 2)
	assert.Equal(t, fridayEvening, groups[0].Slot)
	assert.Equal(t, []int64{1, 3}, groups[0].ParticipantIDs)
	assert.Equal(t, saturday, groups[1].Slot)
	assert.Equal(t, []int64{2}, groups[1].ParticipantIDs)

	assert.Nil(t, GroupSlots(nil))
}

func TestBuildOverlap(t *testing.T) {
	t.Parallel()

	t.Run("three of four participants free", func(t *testing.T) {
		t.Parallel()

		cells := BuildOverlap([]SlotGroup{{Slot: fridayEvening, ParticipantIDs: []int64{1, 2, 3}}}, 4)
		require.Len(t, cells, 1)
		assert.Equal(t, 0.75, cells[0].Score)
		assert.Equal(t, 3, cells[0].Available)
		assert.Equal(t, 4, cells[0].Total)
	})

	t.Run("everyone free scores exactly one", func(t *testing.T) {
		t.Parallel()

		cells := BuildOverlap([]SlotGroup{{Slot: fridayEvening, ParticipantIDs: []int64{1, 2}}}, 2)
		require.Len(t, cells, 1)
		assert.Equal(t, 1.0, cells[0].Score)
	})

	t.Run("empty slots are excluded", func(t *testing.T) {
		t.Parallel()

		cells := BuildOverlap([]SlotGroup{{Slot: fridayEvening}}, 3)
		assert.Empty(t, cells)
	})

	t.Run("zero participants produce no cells", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, BuildOverlap([]SlotGroup{{Slot: fridayEvening, ParticipantIDs: []int64{1}}}, 0))
	})

	t.Run("sorted by score then earlier date and start", func(t *testing.T) {
		t.Parallel()

		early := Slot{Date: "2026-03-06", Start: "10:00", End: "12:00"}
		nextDay := Slot{Date: "2026-03-07", Start: "09:00", End: "11:00"}
		cells := BuildOverlap([]SlotGroup{
			{Slot: nextDay, ParticipantIDs: []int64{1}},
			{Slot: fridayEvening, ParticipantIDs: []int64{1}},
			{Slot: early, ParticipantIDs: []int64{1}},
			{Slot: Slot{Date: "2026-03-07", Start: "13:00", End: "15:00"}, ParticipantIDs: []int64{1, 2}},
		}, 2)

		require.Len(t, cells, 4)
		assert.Equal(t, "13:00", cells[0].Slot.Start)
		assert.Equal(t, early, cells[1].Slot)
		assert.Equal(t, fridayEvening, cells[2].Slot)
		assert.Equal(t, nextDay, cells[3].Slot)
		for _, cell := range cells {
			assert.GreaterOrEqual(t, cell.Score, 0.0)
			assert.LessOrEqual(t, cell.Score, 1.0)
		}
	})
}
