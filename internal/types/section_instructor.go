package types

type SectionInstructor struct {
	SemesterID    int    `gorm:"column:semester_id;primaryKey" json:"semester_id"`
	SectionID     int    `gorm:"column:section_id;primaryKey" json:"section_id"`
	ProfessorName string `gorm:"column:professor_name;primaryKey" json:"professor_name"`
}

func (SectionInstructor) TableName() string { return "section_instructors" }
