package types

// GE requirement categories are single letters A through H.
type CourseGECategory struct {
	SemesterID int    `gorm:"column:semester_id;primaryKey" json:"semester_id"`
	CourseID   string `gorm:"column:course_id;primaryKey" json:"course_id"`
	GECategory string `gorm:"column:ge_category;primaryKey" json:"ge_category"`
}

func (CourseGECategory) TableName() string { return "course_ge_categories" }
