package classapi

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Wire shapes for the classes API. Field coverage is limited to what the
// ETL consumes.

type School struct {
	Name     string    `json:"name"`
	Prefix   string    `json:"prefix"`
	Programs []Program `json:"programs"`
}

type Program struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}

type CourseCode struct {
	Prefix       string `json:"prefix"`
	CourseHyphen string `json:"courseHyphen"`
	CourseSpace  string `json:"courseSpace"`
}

type PrerequisiteCode struct {
	CourseOptions []CourseCode `json:"courseOptions"`
}

type Course struct {
	Name                    string             `json:"name"`
	FullCourseName          string             `json:"fullCourseName"`
	Description             string             `json:"description"`
	DuplicateCredit         string             `json:"duplicateCredit"`
	ScheduledCourseCode     *CourseCode        `json:"scheduledCourseCode"`
	MatchedCourseCode       *CourseCode        `json:"matchedCourseCode"`
	PublishedCourseCode     *CourseCode        `json:"publishedCourseCode"`
	PrerequisiteCourseCodes []PrerequisiteCode `json:"prerequisiteCourseCodes"`
	Sections                []Section          `json:"sections"`
}

type Section struct {
	Name            string          `json:"name"`
	SisSectionID    string          `json:"sisSectionId"`
	IsCancelled     bool            `json:"isCancelled"`
	RnrMode         string          `json:"rnrMode"`
	Units           Units           `json:"units"`
	TotalSeats      int             `json:"totalSeats"`
	RegisteredSeats int             `json:"registeredSeats"`
	HasDClearance   bool            `json:"hasDClearance"`
	Instructors     []Instructor    `json:"instructors"`
	Schedule        []ScheduleEntry `json:"schedule"`
}

type Instructor struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type ScheduleEntry struct {
	Days      []string `json:"days"`
	DayCode   string   `json:"dayCode"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
	Location  string   `json:"location"`
}

// Units tolerates the upstream's mixed encodings: a number, a string such as
// "2-4", or an array whose first element is either.
type Units string

func (u *Units) UnmarshalJSON(data []byte) error {
	*u = parseUnits(data)
	return nil
}

func parseUnits(data []byte) Units {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if strings.HasPrefix(trimmed, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil || len(arr) == 0 {
			return ""
		}
		return parseUnits(arr[0])
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if strings.ContainsAny(s, "-–") {
			return Units(s)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return formatUnitsNumber(f)
		}
		return Units(s)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return formatUnitsNumber(f)
	}
	return Units(strings.Trim(trimmed, `"`))
}

func formatUnitsNumber(f float64) Units {
	if f == float64(int64(f)) {
		return Units(strconv.FormatInt(int64(f), 10))
	}
	return Units(strconv.FormatFloat(f, 'g', -1, 64))
}
