package types

type School struct {
	SchoolID   string `gorm:"column:school_id;primaryKey" json:"school_id"`
	SchoolName string `gorm:"column:school_name;not null" json:"school_name"`
}

func (School) TableName() string { return "schools" }

type Program struct {
	ProgramID   string `gorm:"column:program_id;primaryKey" json:"program_id"`
	SchoolID    string `gorm:"column:school_id;not null;index" json:"school_id"`
	ProgramName string `gorm:"column:program_name;not null" json:"program_name"`
}

func (Program) TableName() string { return "programs" }
