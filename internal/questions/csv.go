package questions

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/bluffparty/bluffparty/internal/apperr"
)

const (
	minQuestionLen = 10
	maxQuestionLen = 500
	maxAnswerLen   = 200
	maxEntries     = 1000
)

// parseCSV reads question rows from CSV content. The header row must
// contain "question" and "answer"; "category" and "difficulty" are
// optional.
func parseCSV(content string) ([]Entry, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "failed to read CSV header", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"question", "answer"} {
		if _, ok := columns[required]; !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "missing required CSV header: %s", required)
		}
	}

	var entries []Entry
	rowNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, apperr.Newf(apperr.CodeValidation, "row %d: malformed CSV record", rowNum)
		}

		entry := Entry{
			Question:   field(record, columns, "question"),
			Answer:     field(record, columns, "answer"),
			Category:   field(record, columns, "category"),
			Difficulty: field(record, columns, "difficulty"),
		}
		if err := validateEntry(entry); err != nil {
			return nil, apperr.Newf(apperr.CodeValidation, "row %d: %s", rowNum, err.Error())
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "CSV file contains no valid questions")
	}
	if len(entries) > maxEntries {
		return nil, apperr.Newf(apperr.CodeValidation, "CSV file contains too many questions (max %d)", maxEntries)
	}
	return entries, nil
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func validateEntry(e Entry) error {
	if len(e.Question) < minQuestionLen {
		return apperr.Newf(apperr.CodeValidation, "question must be at least %d characters long", minQuestionLen)
	}
	if len(e.Question) > maxQuestionLen {
		return apperr.Newf(apperr.CodeValidation, "question must be less than %d characters", maxQuestionLen)
	}
	if e.Answer == "" {
		return apperr.New(apperr.CodeValidation, "answer cannot be empty")
	}
	if len(e.Answer) > maxAnswerLen {
		return apperr.Newf(apperr.CodeValidation, "answer must be less than %d characters", maxAnswerLen)
	}
	return nil
}
