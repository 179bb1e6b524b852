package report

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streetwatch/patrol-log/internal/aggregate"
	"github.com/streetwatch/patrol-log/internal/model"
)

func sampleReportInput() (aggregate.Result, []model.Patrol) {
	patrols := []model.Patrol{
		{
			ID:         "p1",
			Location:   "High Street",
			TeamLeader: "Sam",
			StartTime:  time.Date(2024, time.January, 6, 22, 0, 0, 0, time.UTC),
			Status:     model.StatusCompleted,
			Notes:      "Helped someone find a taxi, \"all fine\" by 1am",
			Statistics: model.StatMap{
				model.CounterConversations: 7,
				model.CounterWaterBottles:  3,
			},
			ContactStatistics: model.StatMap{
				"whiteMaleOver25":   2,
				"asianFemale18To25": 1,
			},
		},
		{
			ID:         "p2",
			Location:   "Market Square",
			TeamLeader: "Alex",
			StartTime:  time.Date(2024, time.January, 13, 22, 0, 0, 0, time.UTC),
			Status:     model.StatusActive,
			Statistics: model.StatMap{model.CounterConversations: 2},
		},
	}
	r := aggregate.Range{
		Start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC),
	}
	return aggregate.Aggregate(patrols, r), aggregate.Filter(patrols, r)
}

func TestBuildCSVStructure(t *testing.T) {
	res, patrols := sampleReportInput()
	doc := BuildCSV(res, patrols, "January 2024 Report", "January 1, 2024 - January 31, 2024")

	// Every field is quoted; a standard CSV reader must still parse it.
	rd := csv.NewReader(strings.NewReader(doc))
	rd.FieldsPerRecord = -1
	rows, err := rd.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"January 2024 Report"}, rows[0])
	assert.Equal(t, []string{"January 1, 2024 - January 31, 2024"}, rows[1])

	byFirst := func(name string) []string {
		for _, row := range rows {
			if len(row) > 0 && row[0] == name {
				return row
			}
		}
		return nil
	}

	total := byFirst("Total Patrols")
	require.NotNil(t, total)
	assert.Equal(t, "2", total[1])

	conv := byFirst("Conversations")
	require.NotNil(t, conv)
	assert.Equal(t, "9", conv[1])

	water := byFirst("Water Bottles")
	require.NotNil(t, water)
	assert.Equal(t, "3", water[1])

	transport := byFirst("Transport Help")
	require.NotNil(t, transport)
	assert.Equal(t, "0", transport[1])

	require.NotNil(t, byFirst("STATISTICS SUMMARY"))
	require.NotNil(t, byFirst("CONTACT MATRIX"))
	require.NotNil(t, byFirst("PATROL DETAILS"))
}

func TestBuildCSVContactMatrixLayout(t *testing.T) {
	res, patrols := sampleReportInput()
	doc := BuildCSV(res, patrols, "t", "r")

	rd := csv.NewReader(strings.NewReader(doc))
	rd.FieldsPerRecord = -1
	rows, err := rd.ReadAll()
	require.NoError(t, err)

	var matrixAt int
	for i, row := range rows {
		if len(row) > 0 && row[0] == "CONTACT MATRIX" {
			matrixAt = i
			break
		}
	}
	require.NotZero(t, matrixAt)

	// Header row 1: leading blank, then each ethnicity label spanning two
	// columns via a trailing empty field.
	eth := rows[matrixAt+1]
	require.Len(t, eth, 9)
	assert.Equal(t, "", eth[0])
	assert.Equal(t, "White", eth[1])
	assert.Equal(t, "", eth[2])
	assert.Equal(t, "Afro/Caribbean", eth[3])
	assert.Equal(t, "Eastern European", eth[7])

	// Header row 2: Male/Female per ethnicity group.
	gender := rows[matrixAt+2]
	require.Len(t, gender, 9)
	assert.Equal(t, []string{"", "Male", "Female", "Male", "Female", "Male", "Female", "Male", "Female"}, gender)

	// One data row per age band, 8 cells each.
	ages := []string{"Under 13", "13-17", "18-25", "Over 25"}
	for i, label := range ages {
		row := rows[matrixAt+3+i]
		require.Len(t, row, 9)
		assert.Equal(t, label, row[0])
	}
	// whiteMaleOver25 = 2 lives in the Over 25 row, first cell.
	over25 := rows[matrixAt+6]
	assert.Equal(t, "2", over25[1])
	// asianFemale18To25 = 1 in the 18-25 row: asian is the third ethnicity
	// group (cells 5,6), Female is the second column of the pair.
	band18 := rows[matrixAt+5]
	assert.Equal(t, "1", band18[6])
}

func TestBuildCSVPatrolDetails(t *testing.T) {
	res, patrols := sampleReportInput()
	doc := BuildCSV(res, patrols, "t", "r")

	rd := csv.NewReader(strings.NewReader(doc))
	rd.FieldsPerRecord = -1
	rows, err := rd.ReadAll()
	require.NoError(t, err)

	var detailsAt int
	for i, row := range rows {
		if len(row) > 0 && row[0] == "PATROL DETAILS" {
			detailsAt = i
			break
		}
	}
	require.NotZero(t, detailsAt)
	assert.Equal(t, []string{"Date", "Location", "Team Leader", "Status", "Notes"}, rows[detailsAt+1])

	first := rows[detailsAt+2]
	assert.Equal(t, "2024-01-06", first[0])
	assert.Equal(t, "High Street", first[1])
	assert.Equal(t, "Sam", first[2])
	assert.Equal(t, "Completed", first[3])
	// Embedded quotes survive the round trip.
	assert.Equal(t, `Helped someone find a taxi, "all fine" by 1am`, first[4])

	second := rows[detailsAt+3]
	assert.Equal(t, "Active", second[3])
}

func TestBuildCSVNoData(t *testing.T) {
	r := aggregate.Range{
		Start: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
	}
	res := aggregate.Aggregate(nil, r)
	doc := BuildCSV(res, nil, "January 2024 Report", "range")

	assert.Contains(t, doc, `"Total Patrols","0"`)
	assert.Contains(t, doc, `"No patrol data available for this period"`)
	assert.NotContains(t, doc, "CONTACT MATRIX")
	assert.NotContains(t, doc, "PATROL DETAILS")
}
