package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	domerrors "github.com/garyellow/picfinder-linebot-go/internal/errors"
)

// Parse decodes a UTF-8 CSV document (a leading byte-order mark is ignored)
// into records in row order. Missing required headers fail with *errors.ParseError
// naming the column; a missing audio header yields empty AudioURL values.
func Parse(data []byte, cols Columns) ([]Record, error) {
	decoded, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return nil, domerrors.NewParseError("", 0, fmt.Errorf("decode utf-8: %w", err))
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domerrors.NewParseError("", 1, errors.New("missing header row"))
		}
		return nil, wrapCSVError(err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	required := []string{cols.ID, cols.Keyword, cols.AltKeyword, cols.ImageURL, cols.Episode}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, domerrors.NewParseError(name, 0, errors.New("required column missing"))
		}
	}

	audioIdx := -1
	if i, ok := index[cols.AudioURL]; ok && cols.AudioURL != "" {
		audioIdx = i
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		if blank(row) {
			continue
		}

		records = append(records, Record{
			ID:         cell(row, index[cols.ID]),
			Keyword:    cell(row, index[cols.Keyword]),
			AltKeyword: cell(row, index[cols.AltKeyword]),
			ImageURL:   cell(row, index[cols.ImageURL]),
			Episode:    cell(row, index[cols.Episode]),
			AudioURL:   cell(row, audioIdx),
		})
	}

	return records, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func wrapCSVError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return domerrors.NewParseError("", pe.Line, err)
	}
	return domerrors.NewParseError("", 0, err)
}
