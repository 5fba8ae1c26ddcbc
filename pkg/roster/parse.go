package roster

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
)

const byteOrderMark = "\ufeff"

// column identifies a roster field in the header.
type column int

const (
	colID column = iota
	colName
	colEmail
	colPhone
	colDescription
	colRecording
)

var headerNames = map[string]column{
	headerKey(constants.ColumnID):               colID,
	headerKey(constants.ColumnName):             colName,
	headerKey(constants.ColumnEmail):            colEmail,
	headerKey(constants.ColumnPhoneNumber):      colPhone,
	headerKey(constants.ColumnDescription):      colDescription,
	headerKey(constants.ColumnAutoCallRecorded): colRecording,
}

// headerKey folds a header cell so "Name (Required)", "name" and " NAME "
// all match.
func headerKey(h string) string {
	h = strings.TrimPrefix(h, byteOrderMark)
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, "(required)")
	return strings.TrimSpace(h)
}

// Parse reads a roster export in CSV form. The first record is the header;
// unknown columns are ignored and only the ID column is mandatory. Records
// whose cells are all empty are skipped.
func Parse(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(byteOrderMark)); err == nil && bytes.Equal(lead, []byte(byteOrderMark)) {
		_, _ = br.Discard(len(byteOrderMark))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewParseError("csv", "", "roster is empty", nil)
	}
	if err != nil {
		return nil, parseFailure(err)
	}

	index := make(map[column]int, len(headerNames))
	for i, h := range header {
		col, ok := headerNames[headerKey(h)]
		if !ok {
			continue
		}
		if _, dup := index[col]; !dup {
			index[col] = i
		}
	}
	if _, ok := index[colID]; !ok {
		return nil, errors.NewParseError("csv", "", "missing "+constants.ColumnID+" column", nil)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseFailure(err)
		}
		if blank(record) {
			continue
		}

		line, _ := cr.FieldPos(0)
		cell := func(c column) string {
			i, ok := index[c]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		rows = append(rows, Row{
			Line:              line,
			ID:                cell(colID),
			Name:              cell(colName),
			Email:             cell(colEmail),
			PhoneNumbers:      cell(colPhone),
			Description:       cell(colDescription),
			AutoCallRecording: cell(colRecording),
		})
	}

	return rows, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseFailure(err error) error {
	pe := errors.NewParseError("csv", "", "malformed roster", err)
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		pe.Line = csvErr.Line
	}
	return pe
}
