package types

// Staging mirrors of the production tables. Same shape, staging_ prefix;
// fully overwritten by each ETL run and never read by end users.

type StagingSchool struct{ School }

func (StagingSchool) TableName() string { return "staging_schools" }

type StagingProgram struct{ Program }

func (StagingProgram) TableName() string { return "staging_programs" }

type StagingProfessor struct{ Professor }

func (StagingProfessor) TableName() string { return "staging_professors" }

type StagingCourse struct{ Course }

func (StagingCourse) TableName() string { return "staging_courses" }

type StagingSection struct{ Section }

func (StagingSection) TableName() string { return "staging_sections" }

type StagingSectionInstructor struct{ SectionInstructor }

func (StagingSectionInstructor) TableName() string { return "staging_section_instructors" }

type StagingCourseGECategory struct{ CourseGECategory }

func (StagingCourseGECategory) TableName() string { return "staging_course_ge_categories" }

type StagingSectionPrerequisite struct{ SectionPrerequisite }

func (StagingSectionPrerequisite) TableName() string { return "staging_section_prerequisites" }

type StagingSectionDuplicatedCredit struct{ SectionDuplicatedCredit }

func (StagingSectionDuplicatedCredit) TableName() string { return "staging_section_duplicated_credits" }
