package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanGrade(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"08Х18Н10Т (ГОСТ 5632-2014)", "08Х18Н10Т"},
		{"08Х18Н10Т (гост 5632-2014)", "08Х18Н10Т"},
		{"30ХГСА ТУ 14-1-950-86", "30ХГСА"},
		{"12Х18Н10Т ОСТ 3-1686-90", "12Х18Н10Т"},
		{"C45 EN 10083-2", "C45"},
		{"X5CrNi18-10 DIN 17440", "X5CrNi18-10"},
		{"316L ISO 9328", "316L"},
		{"20Х13 ГОСТ 5632-2014 ТУ 14-1-377-72", "20Х13"},
		{"08Х18Н10Т (ГОСТ 5632-2014) ТУ 14-1-3581-83", "08Х18Н10Т"},
		{"09Г2С", "09Г2С"},
		{"09Г2С - ", "09Г2С"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanGrade(tt.in))
		})
	}
}

// Cleaning is a projection: applying it twice changes nothing.
func TestCleanGradeIdempotent(t *testing.T) {
	inputs := []string{
		"08Х18Н10Т (ГОСТ 5632-2014)",
		"30ХГСА ТУ 14-1-950-86",
		"20Х13 ГОСТ 5632-2014 ТУ 14-1-377-72",
		"12Х18Н10Т (ГОСТ 5632-2014) ОСТ 3-1686-90 ТУ 14-1-3581-83",
		"C45 EN 10083-2",
		"09Г2С",
		"weird grade () ГОСТ",
		"",
	}
	for _, in := range inputs {
		once := CleanGrade(in)
		assert.Equal(t, once, CleanGrade(once), "input %q", in)
	}
}

func TestFileNameSanitized(t *testing.T) {
	name := FileName(LotInfo{
		Grade:             "08Х18Н10Т (ГОСТ 5632-2014)",
		Shape:             "круг",
		Size:              "ф12",
		MeltNumber:        "П-123/45",
		CertificateNumber: `78:90?`,
		CertificateDate:   "12.05.2024",
		Supplier:          `ООО "Сталь"`,
	})

	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, `\`)
	assert.NotContains(t, name, ":")
	assert.NotContains(t, name, "?")
	assert.Contains(t, name, "08Х18Н10Т")
	assert.NotContains(t, name, "ГОСТ")
}

func TestFileNameDeterministic(t *testing.T) {
	lot := LotInfo{Grade: "09Г2С", Shape: "лист", Size: "10", MeltNumber: "54321"}
	assert.Equal(t, FileName(lot), FileName(lot))
}
