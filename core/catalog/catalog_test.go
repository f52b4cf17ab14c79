package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		number  string
		want    string
	}{
		{name: "canonical", subject: "CS", number: "5114", want: "CS 5114"},
		{name: "lower subject trimmed", subject: "  cs ", number: " 5114 ", want: "CS 5114"},
		{name: "no subject", subject: " ", number: "5114", want: ""},
		{name: "no number", subject: "CS", number: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.subject, tt.number); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIndex(t *testing.T) {
	idx := NewIndex([]Course{
		{ID: 1, SubjectCode: "CS", CourseNumber: "5114", Credits: 3, Areas: []int{1}},
		{ID: 2, SubjectCode: "CS", CourseNumber: "5115", Credits: 3, Areas: []int{2, 3}},
		{ID: 3, SubjectCode: "MATH", CourseNumber: "4445", Credits: 3, Areas: []int{AreaCognate}},
		{ID: 4, SubjectCode: "", CourseNumber: "1"},
	})

	c, ok := idx.Lookup(" cs  5114")
	assert.True(t, ok)
	assert.Equal(t, 1, c.ID)

	_, ok = idx.Lookup("CS 9999")
	assert.False(t, ok)

	assert.Equal(t, []string{"CS 5114", "CS 5115"}, idx.Suggest("CS 5116", 3))
	assert.Equal(t, []string{"CS 5114"}, idx.Suggest("CS 5114", 1))
	assert.Empty(t, idx.Suggest("HIST 1000", 3))
	assert.Empty(t, idx.Suggest("", 3))
}

func TestCourse_HasArea(t *testing.T) {
	c := Course{Areas: []int{0, 4}}
	assert.True(t, c.HasArea(AreaEthics))
	assert.False(t, c.HasArea(AreaCognate))
}
