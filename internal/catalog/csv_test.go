package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCustomersCSV(t *testing.T) {
	input := "Phone,Name,Address\n555-1,Alice,1 Main St\n555-2,Bob,\"2 High St, Apt 3\"\n"

	got, err := ParseCustomersCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []CustomerInput{
		{Name: "Alice", Address: "1 Main St", Phone: "555-1"},
		{Name: "Bob", Address: "2 High St, Apt 3", Phone: "555-2"},
	}, got)
}

func TestParseCustomersCSVRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"missing column": "name,address\nA,B\n",
		"ragged row":     "name,address,phone\nA,B\n",
		"header only":    "name,address,phone\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCustomersCSV(strings.NewReader(input))
			require.ErrorIs(t, err, ErrCSVMapping)
		})
	}
}
