package expectation

import (
	"strconv"

	"coachline/internal/domain"
	"coachline/internal/sheet"
)

// Column layout of the Expectations sheet. Row 1 is the header.
const numCols = 13

var header = sheet.Row{
	"id", "resource_id", "performance", "one_to_one", "side_by_side",
	"start_date", "end_date", "type", "active",
	"created_by", "created_date", "modified_by", "modified_date",
}

func encodeRow(e domain.Expectation) sheet.Row {
	return sheet.Row{
		strconv.Itoa(e.ID),
		strconv.Itoa(e.ResourceID),
		formatFloat(e.Performance),
		formatFloat(e.OneToOne),
		formatFloat(e.SideBySide),
		e.StartDate,
		e.EndDate,
		e.Type,
		strconv.FormatBool(e.Active),
		strconv.Itoa(e.CreatedBy),
		e.CreatedDate,
		strconv.Itoa(e.ModifiedBy),
		e.ModifiedDate,
	}
}

func decodeRow(row sheet.Row) (domain.Expectation, bool) {
	if len(row) < numCols {
		return domain.Expectation{}, false
	}
	id, err := strconv.Atoi(row[0])
	if err != nil || id <= 0 {
		return domain.Expectation{}, false
	}
	resource, err := strconv.Atoi(row[1])
	if err != nil {
		return domain.Expectation{}, false
	}
	perf, err1 := strconv.ParseFloat(row[2], 64)
	oto, err2 := strconv.ParseFloat(row[3], 64)
	sbs, err3 := strconv.ParseFloat(row[4], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return domain.Expectation{}, false
	}
	active, err := strconv.ParseBool(row[8])
	if err != nil {
		return domain.Expectation{}, false
	}
	createdBy, _ := strconv.Atoi(row[9])
	modifiedBy, _ := strconv.Atoi(row[11])
	return domain.Expectation{
		ID:           id,
		ResourceID:   resource,
		Performance:  perf,
		OneToOne:     oto,
		SideBySide:   sbs,
		StartDate:    row[5],
		EndDate:      row[6],
		Type:         row[7],
		Active:       active,
		CreatedBy:    createdBy,
		CreatedDate:  row[10],
		ModifiedBy:   modifiedBy,
		ModifiedDate: row[12],
	}, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
