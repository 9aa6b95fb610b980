package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	for name, tc := range map[string]struct {
		raw  string
		want []string
	}{
		"empty":             {raw: "", want: []string{}},
		"only separators":   {raw: " , ,", want: []string{}},
		"single":            {raw: "localhost:9092", want: []string{"localhost:9092"}},
		"trims and dedupes": {raw: " a:9092 ,b:9092, a:9092,", want: []string{"a:9092", "b:9092"}},
		"keeps order":       {raw: "c,b,a,b", want: []string{"c", "b", "a"}},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitList(tc.raw, ","))
		})
	}
}
