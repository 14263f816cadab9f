package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCSVMapping indicates the uploaded file cannot be mapped onto customers.
var ErrCSVMapping = errors.New("catalog: csv mapping failed")

var customerColumns = []string{"name", "address", "phone"}

// ParseCustomersCSV reads customers from a CSV document whose header names the
// name, address and phone columns in any order and case.
func ParseCustomersCSV(r io.Reader) ([]CustomerInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrCSVMapping)
		}
		return nil, fmt.Errorf("%w: %v", ErrCSVMapping, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, col := range customerColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrCSVMapping, col)
		}
	}

	var out []CustomerInput
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCSVMapping, err)
		}
		out = append(out, CustomerInput{
			Name:    record[index["name"]],
			Address: record[index["address"]],
			Phone:   record[index["phone"]],
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrCSVMapping)
	}
	return out, nil
}
