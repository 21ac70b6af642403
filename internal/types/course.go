package types

type Course struct {
	SemesterID   int    `gorm:"column:semester_id;primaryKey" json:"semester_id"`
	CourseID     string `gorm:"column:course_id;primaryKey" json:"course_id"`
	ProgramID    string `gorm:"column:program_id;not null;index" json:"program_id"`
	CourseNumber *int   `gorm:"column:course_number" json:"course_number,omitempty"`
	Title        string `gorm:"column:title;not null" json:"title"`
	Description  string `gorm:"column:description" json:"description"`
}

func (Course) TableName() string { return "courses" }
