// Package dummydb is an in-memory implementation of the stores, used by tests and local runs.
package dummydb

import (
	"sync"

	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/plan"
	"github.com/dtsmedt/PlanOfStudy/core/transcript"
)

type (
	DB struct {
		student    *studentTable
		plan       *planTable
		planned    *plannedTable
		transfer   *transferTable
		committee  *committeeTable
		ignored    *ignoredTable
		history    *historyTable
		course     *courseTable
		transcript *transcriptTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]plan.Student
	}

	planTable struct {
		sync.RWMutex
		seq   int
		table map[int]*plan.Plan
	}

	plannedTable struct {
		sync.RWMutex
		seq   int
		table map[int]*plan.PlannedCourse
	}

	transferTable struct {
		sync.RWMutex
		seq   int
		table map[int]*plan.TransferCourse
	}

	committeeTable struct {
		sync.RWMutex
		seq   int
		table map[int]*plan.CommitteeMember
	}

	ignoredTable struct {
		sync.RWMutex
		rows []plan.IgnoredCourse
	}

	historyTable struct {
		sync.RWMutex
		seq  int
		rows []plan.HistoryEntry
	}

	courseTable struct {
		sync.RWMutex
		table map[int]catalog.Course
		areas map[int]catalog.Area
	}

	transcriptTable struct {
		sync.RWMutex
		seq  int
		rows []transcript.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		student:    &studentTable{table: make(map[string]plan.Student)},
		plan:       &planTable{table: make(map[int]*plan.Plan)},
		planned:    &plannedTable{table: make(map[int]*plan.PlannedCourse)},
		transfer:   &transferTable{table: make(map[int]*plan.TransferCourse)},
		committee:  &committeeTable{table: make(map[int]*plan.CommitteeMember)},
		ignored:    &ignoredTable{},
		history:    &historyTable{},
		course:     &courseTable{table: make(map[int]catalog.Course), areas: make(map[int]catalog.Area)},
		transcript: &transcriptTable{},
	}
	return db, nil
}

// SeedCatalog loads the course catalog. The catalog is maintained outside the application,
// so there is no repository method for it.
func (db *DB) SeedCatalog(courses []catalog.Course, areas []catalog.Area) {
	db.course.Lock()
	defer db.course.Unlock()

	for _, c := range courses {
		c.Areas = append([]int(nil), c.Areas...)
		db.course.table[c.ID] = c
	}
	for _, a := range areas {
		db.course.areas[a.ID] = a
	}
}
