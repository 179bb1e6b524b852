package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetwatch/patrol-log/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 20, 0, 0, 0, time.UTC)
}

func january2024() Range {
	return Range{
		Start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.January, 31, 23, 59, 59, 999999999, time.UTC),
	}
}

func TestRangeContainsIsInclusive(t *testing.T) {
	r := january2024()
	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.End))
	assert.True(t, r.Contains(day(2024, time.January, 15)))
	assert.False(t, r.Contains(r.Start.Add(-time.Nanosecond)))
	assert.False(t, r.Contains(r.End.Add(time.Nanosecond)))
}

func TestAggregateSumsOnlyPatrolsInRange(t *testing.T) {
	patrols := []model.Patrol{
		{
			ID:        "a",
			StartTime: day(2024, time.January, 5),
			Statistics: model.StatMap{
				model.CounterConversations: 4,
				model.CounterWaterBottles:  2,
			},
			ContactStatistics: model.StatMap{"whiteMaleOver25": 3},
		},
		{
			ID:        "b",
			StartTime: day(2024, time.January, 20),
			Statistics: model.StatMap{
				model.CounterConversations: 1,
				model.CounterPrayers:       5,
			},
			ContactStatistics: model.StatMap{
				"whiteMaleOver25":   1,
				"asianFemale18To25": 2,
			},
		},
		{
			ID:         "outside",
			StartTime:  day(2024, time.February, 2),
			Statistics: model.StatMap{model.CounterConversations: 100},
		},
	}

	res := Aggregate(patrols, january2024())
	require.False(t, res.NoData)
	assert.Equal(t, 2, res.Patrols)
	assert.Equal(t, 5, res.Totals.Get(model.CounterConversations))
	assert.Equal(t, 5, res.Totals.Get(model.CounterPrayers))
	assert.Equal(t, 2, res.Totals.Get(model.CounterWaterBottles))
	assert.Equal(t, 0, res.Totals.Get(model.CounterFirstAid), "absent counters read as zero")
	assert.Equal(t, 4, res.Contacts.Get("whiteMaleOver25"))
	assert.Equal(t, 2, res.Contacts.Get("asianFemale18To25"))
	assert.Equal(t, 0, res.Contacts.Get("whiteFemaleUnder13"))
}

func TestAggregateEmptyRange(t *testing.T) {
	patrols := []model.Patrol{
		{ID: "a", StartTime: day(2023, time.June, 1)},
	}
	res := Aggregate(patrols, january2024())
	assert.True(t, res.NoData)
	assert.Equal(t, 0, res.Patrols)
	require.NotNil(t, res.Totals)
	require.NotNil(t, res.Contacts)
	assert.Len(t, res.Totals, 9)
	assert.Len(t, res.Contacts, 32)
	for k, v := range res.Totals {
		assert.Equal(t, 0, v, k)
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	patrols := []model.Patrol{
		{ID: "late", StartTime: day(2024, time.January, 30)},
		{ID: "out", StartTime: day(2024, time.March, 1)},
		{ID: "early", StartTime: day(2024, time.January, 2)},
	}
	got := Filter(patrols, january2024())
	require.Len(t, got, 2)
	assert.Equal(t, "late", got[0].ID)
	assert.Equal(t, "early", got[1].ID)
}
