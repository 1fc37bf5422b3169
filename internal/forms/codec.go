package forms

import (
	"strconv"

	"coachline/internal/domain"
	"coachline/internal/sheet"
)

const (
	formCols     = 8
	questionCols = 9
	linkCols     = 4
)

var (
	formHeader     = sheet.Row{"id", "name", "version", "hidden", "created_by", "created_date", "modified_by", "modified_date"}
	questionHeader = sheet.Row{"id", "text", "category", "kind", "hidden", "created_by", "created_date", "modified_by", "modified_date"}
	linkHeader     = sheet.Row{"form_id", "question_id", "version", "rank"}
)

func encodeForm(f domain.Form) sheet.Row {
	return sheet.Row{
		strconv.Itoa(f.ID),
		f.Name,
		strconv.Itoa(f.Version),
		strconv.FormatBool(f.Hidden),
		strconv.Itoa(f.CreatedBy),
		f.CreatedDate,
		strconv.Itoa(f.ModifiedBy),
		f.ModifiedDate,
	}
}

func decodeForm(row sheet.Row) (domain.Form, bool) {
	if len(row) < formCols {
		return domain.Form{}, false
	}
	id, err := strconv.Atoi(row[0])
	if err != nil || id <= 0 {
		return domain.Form{}, false
	}
	version, err := strconv.Atoi(row[2])
	if err != nil {
		return domain.Form{}, false
	}
	hidden, err := strconv.ParseBool(row[3])
	if err != nil {
		return domain.Form{}, false
	}
	createdBy, _ := strconv.Atoi(row[4])
	modifiedBy, _ := strconv.Atoi(row[6])
	return domain.Form{
		ID:           id,
		Name:         row[1],
		Version:      version,
		Hidden:       hidden,
		CreatedBy:    createdBy,
		CreatedDate:  row[5],
		ModifiedBy:   modifiedBy,
		ModifiedDate: row[7],
	}, true
}

func encodeQuestion(q domain.Question) sheet.Row {
	return sheet.Row{
		strconv.Itoa(q.ID),
		q.Text,
		q.Category,
		q.Kind,
		strconv.FormatBool(q.Hidden),
		strconv.Itoa(q.CreatedBy),
		q.CreatedDate,
		strconv.Itoa(q.ModifiedBy),
		q.ModifiedDate,
	}
}

func decodeQuestion(row sheet.Row) (domain.Question, bool) {
	if len(row) < questionCols {
		return domain.Question{}, false
	}
	id, err := strconv.Atoi(row[0])
	if err != nil || id <= 0 {
		return domain.Question{}, false
	}
	hidden, err := strconv.ParseBool(row[4])
	if err != nil {
		return domain.Question{}, false
	}
	createdBy, _ := strconv.Atoi(row[5])
	modifiedBy, _ := strconv.Atoi(row[7])
	return domain.Question{
		ID:           id,
		Text:         row[1],
		Category:     row[2],
		Kind:         row[3],
		Hidden:       hidden,
		CreatedBy:    createdBy,
		CreatedDate:  row[6],
		ModifiedBy:   modifiedBy,
		ModifiedDate: row[8],
	}, true
}

func encodeLink(l domain.FormQuestion) sheet.Row {
	return sheet.Row{
		strconv.Itoa(l.FormID),
		strconv.Itoa(l.QuestionID),
		strconv.Itoa(l.Version),
		strconv.Itoa(l.Rank),
	}
}

func decodeLink(row sheet.Row) (domain.FormQuestion, bool) {
	if len(row) < linkCols {
		return domain.FormQuestion{}, false
	}
	formID, err := strconv.Atoi(row[0])
	if err != nil || formID <= 0 {
		return domain.FormQuestion{}, false
	}
	questionID, err := strconv.Atoi(row[1])
	if err != nil || questionID <= 0 {
		return domain.FormQuestion{}, false
	}
	version, err := strconv.Atoi(row[2])
	if err != nil {
		return domain.FormQuestion{}, false
	}
	rank, err := strconv.Atoi(row[3])
	if err != nil {
		return domain.FormQuestion{}, false
	}
	return domain.FormQuestion{FormID: formID, QuestionID: questionID, Version: version, Rank: rank}, true
}
