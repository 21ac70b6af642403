package types

// Section types recognized by the catalog; anything else maps to Other.
const (
	SectionTypeLecture    = "Lecture"
	SectionTypeDiscussion = "Discussion"
	SectionTypeLab        = "Lab"
	SectionTypeQuiz       = "Quiz"
	SectionTypeStudio     = "Studio"
	SectionTypeOther      = "Other"
)

type Section struct {
	SemesterID         int    `gorm:"column:semester_id;primaryKey" json:"semester_id"`
	SectionID          int    `gorm:"column:section_id;primaryKey" json:"section_id"`
	CourseID           string `gorm:"column:course_id;not null;index" json:"course_id"`
	SectionType        string `gorm:"column:section_type;not null" json:"section_type"`
	Units              string `gorm:"column:units" json:"units"`
	TotalSeats         int    `gorm:"column:total_seats;not null;default:0" json:"total_seats"`
	RegisteredSeats    int    `gorm:"column:registered_seats;not null;default:0" json:"registered_seats"`
	Location           string `gorm:"column:location" json:"location"`
	TimeSchedule       string `gorm:"column:time_schedule" json:"time_schedule"`
	DClearanceRequired bool   `gorm:"column:d_clearance_required;not null;default:false" json:"d_clearance_required"`
}

func (Section) TableName() string { return "sections" }
