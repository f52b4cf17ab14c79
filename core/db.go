package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings keeps the orderings whose field is allowed; used to keep user input out of ORDER BY.
func FilterOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	var kept []DBOrdering
	for _, ord := range orderings {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				kept = append(kept, DBOrdering{Field: fld, Ascending: ord.Ascending})
				break
			}
		}
	}
	return kept
}
