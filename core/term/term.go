// Package term maps registrar term codes onto the plan's term vocabulary.
package term

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a term of the academic year.
type ID int

const (
	Fall    ID = 1
	Winter  ID = 2
	Spring  ID = 3
	Summer1 ID = 4
	Summer2 ID = 5
	Summer3 ID = 6
)

var names = map[ID]string{
	Fall:    "Fall",
	Winter:  "Winter",
	Spring:  "Spring",
	Summer1: "Summer 1",
	Summer2: "Summer 2",
	Summer3: "Summer 3",
}

func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return "Term " + strconv.Itoa(int(id))
}

func (id ID) Valid() bool {
	_, ok := names[id]
	return ok
}

// Term is a row of the term catalog.
type Term struct {
	ID   ID     `json:"term_id" db:"term_id"`
	Name string `json:"term" db:"term"`
}

// All is the term catalog in id order.
var All = []Term{
	{ID: Fall, Name: Fall.String()},
	{ID: Winter, Name: Winter.String()},
	{ID: Spring, Name: Spring.String()},
	{ID: Summer1, Name: Summer1.String()},
	{ID: Summer2, Name: Summer2.String()},
	{ID: Summer3, Name: Summer3.String()},
}

// Taken is a parsed transcript term code, e.g. 202408 -> {2024, "08"}.
type Taken struct {
	Year   int
	Suffix string
}

// ParseTaken splits a raw term-taken code into year and suffix.
// ok is false when the code is shorter than 6 characters or the year is not a number.
func ParseTaken(raw string) (Taken, bool) {
	if len(raw) < 6 {
		return Taken{}, false
	}
	year, err := strconv.Atoi(raw[:4])
	if err != nil {
		return Taken{}, false
	}
	return Taken{Year: year, Suffix: raw[4:6]}, true
}

// SuffixToIDs maps a registrar suffix to the candidate term ids, in ascending order.
// "05" is ambiguous and maps to both Summer 1 and Summer 3.
// Unknown suffixes map to nothing.
func SuffixToIDs(suffix string) []ID {
	switch suffix {
	case "08":
		return []ID{Fall}
	case "01":
		return []ID{Spring}
	case "12":
		return []ID{Winter}
	case "07":
		return []ID{Summer2}
	case "05":
		return []ID{Summer1, Summer3}
	default:
		return nil
	}
}

// Bucket is the (year, term) slot that transcript and planned rows are aligned on.
type Bucket struct {
	Year int `json:"year"`
	Term ID  `json:"term_id"`
}

// Less orders buckets by year, then by term id.
func (b Bucket) Less(other Bucket) bool {
	if b.Year != other.Year {
		return b.Year < other.Year
	}
	return b.Term < other.Term
}

func (b Bucket) String() string {
	return fmt.Sprintf("%s %d", b.Term, b.Year)
}

// Buckets parses a raw term-taken code into every bucket it may belong to.
// An empty result means the code belongs to no known term.
func Buckets(raw string) []Bucket {
	taken, ok := ParseTaken(strings.TrimSpace(raw))
	if !ok {
		return nil
	}
	ids := SuffixToIDs(taken.Suffix)
	buckets := make([]Bucket, 0, len(ids))
	for _, id := range ids {
		buckets = append(buckets, Bucket{Year: taken.Year, Term: id})
	}
	return buckets
}
