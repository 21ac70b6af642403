package classapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coursex/coursex-backend/internal/pkg/httpx"
	"github.com/coursex/coursex-backend/internal/platform/envutil"
	"github.com/coursex/coursex-backend/internal/platform/logger"
)

const (
	defaultBaseURL = "https://classes.usc.edu/api"
	maxAttempts    = 4
	backoffStep    = 5 * time.Second
)

type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return &Client{
		baseURL: envutil.String("CLASS_API_BASE_URL", defaultBaseURL),
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log.With("client", "ClassAPI"),
	}
}

// SchoolsByTerm returns the school/program tree for a term.
func (c *Client) SchoolsByTerm(ctx context.Context, termCode string) ([]School, error) {
	var out []School
	err := c.getJSON(ctx, "/Schools/TermCode", url.Values{"termCode": {termCode}}, &out)
	if err != nil {
		return nil, fmt.Errorf("schools for term %s: %w", termCode, err)
	}
	return out, nil
}

type coursesResponse struct {
	Courses []Course `json:"courses"`
}

// ProgramCourses returns all non-cancelled-section courses for one program.
// Cancelled sections are dropped here so downstream stages never see them.
func (c *Client) ProgramCourses(ctx context.Context, termCode, school, program string) ([]Course, error) {
	var resp coursesResponse
	err := c.getJSON(ctx, "/Courses/CoursesByTermSchoolProgram", url.Values{
		"termCode": {termCode},
		"school":   {school},
		"program":  {program},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("courses for %s/%s term %s: %w", school, program, termCode, err)
	}
	return dropCancelled(resp.Courses), nil
}

// GECourses returns the courses satisfying one GE requirement category.
func (c *Client) GECourses(ctx context.Context, termCode, requirementPrefix, categoryPrefix string) ([]Course, error) {
	var resp coursesResponse
	err := c.getJSON(ctx, "/Courses/GeCoursesByTerm", url.Values{
		"termCode":            {termCode},
		"geRequirementPrefix": {requirementPrefix},
		"categoryPrefix":      {categoryPrefix},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("GE courses %s/%s term %s: %w", requirementPrefix, categoryPrefix, termCode, err)
	}
	return dropCancelled(resp.Courses), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path + "?" + query.Encode()
	return httpx.RetryJSON(ctx, c.http, maxAttempts, backoffStep, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	}, out)
}

func dropCancelled(courses []Course) []Course {
	out := make([]Course, 0, len(courses))
	for _, course := range courses {
		kept := make([]Section, 0, len(course.Sections))
		for _, section := range course.Sections {
			if section.IsCancelled {
				continue
			}
			kept = append(kept, section)
		}
		course.Sections = kept
		out = append(out, course)
	}
	return out
}
