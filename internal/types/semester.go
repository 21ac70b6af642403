package types

import "fmt"

type Semester struct {
	SemesterID   int    `gorm:"column:semester_id;primaryKey" json:"semester_id"`
	SemesterName string `gorm:"column:semester_name;not null" json:"semester_name"`
	Year         int    `gorm:"column:year;not null" json:"year"`
	Term         string `gorm:"column:term;not null" json:"term"`
	IsActive     bool   `gorm:"column:is_active;not null;default:false" json:"is_active"`
}

func (Semester) TableName() string { return "semesters" }

// SemesterMeta derives display fields from the numeric term code, e.g.
// 20261 -> year 2026, term Spring, name "Spring 2026".
func SemesterMeta(semesterID int) Semester {
	code := semesterID % 10
	year := semesterID / 10
	var term string
	switch code {
	case 1:
		term = "Spring"
	case 2:
		term = "Summer"
	case 3:
		term = "Fall"
	default:
		term = fmt.Sprintf("Term %d", code)
	}
	return Semester{
		SemesterID:   semesterID,
		SemesterName: fmt.Sprintf("%s %d", term, year),
		Year:         year,
		Term:         term,
	}
}
