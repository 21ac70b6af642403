package types

// Free-text annotations attached to a section, unique per text.

type SectionPrerequisite struct {
	SemesterID       int    `gorm:"column:semester_id;primaryKey" json:"semester_id"`
	SectionID        int    `gorm:"column:section_id;primaryKey" json:"section_id"`
	PrerequisiteText string `gorm:"column:prerequisite_text;primaryKey" json:"prerequisite_text"`
}

func (SectionPrerequisite) TableName() string { return "section_prerequisites" }

type SectionDuplicatedCredit struct {
	SemesterID     int    `gorm:"column:semester_id;primaryKey" json:"semester_id"`
	SectionID      int    `gorm:"column:section_id;primaryKey" json:"section_id"`
	DuplicatedText string `gorm:"column:duplicated_text;primaryKey" json:"duplicated_text"`
}

func (SectionDuplicatedCredit) TableName() string { return "section_duplicated_credits" }
