package types

// Professor rows are global (never semester-scoped) and mutated in place on
// each ratings refresh.
type Professor struct {
	ProfessorName       string   `gorm:"column:professor_name;primaryKey" json:"professor_name"`
	RmpID               *int64   `gorm:"column:rmp_id" json:"rmp_id,omitempty"`
	Difficulty          *float64 `gorm:"column:difficulty" json:"difficulty,omitempty"`
	Rating              *float64 `gorm:"column:rating" json:"rating,omitempty"`
	RatingCount         *int     `gorm:"column:rating_count" json:"rating_count,omitempty"`
	TakeAgainPercentage *float64 `gorm:"column:take_again_percentage" json:"take_again_percentage,omitempty"`
}

func (Professor) TableName() string { return "professors" }
