package classapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coursex/coursex-backend/internal/platform/logger"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &Client{
		baseURL: srv.URL,
		http:    &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

func TestSchoolsByTerm(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Schools/TermCode" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("termCode"); got != "20261" {
			t.Errorf("unexpected termCode %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name":"Viterbi School of Engineering","prefix":"ENGR",
			 "programs":[{"name":"Computer Science","prefix":"CSCI"}]}
		]`))
	}))

	schools, err := client.SchoolsByTerm(context.Background(), "20261")
	if err != nil {
		t.Fatalf("SchoolsByTerm: %v", err)
	}
	if len(schools) != 1 || schools[0].Prefix != "ENGR" || len(schools[0].Programs) != 1 {
		t.Fatalf("unexpected schools %+v", schools)
	}
}

func TestProgramCoursesDropsCancelledSections(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"courses":[
			{"name":"Introduction to Programming",
			 "scheduledCourseCode":{"prefix":"CSCI","courseHyphen":"CSCI-103"},
			 "sections":[
				{"sisSectionId":"29903","rnrMode":"Lecture","units":4},
				{"sisSectionId":"29904","rnrMode":"Lab","isCancelled":true,"units":"2-4"}
			 ]}
		]}`))
	}))

	courses, err := client.ProgramCourses(context.Background(), "20261", "ENGR", "CSCI")
	if err != nil {
		t.Fatalf("ProgramCourses: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("expected 1 course, got %d", len(courses))
	}
	sections := courses[0].Sections
	if len(sections) != 1 || sections[0].SisSectionID != "29903" {
		t.Fatalf("cancelled section survived: %+v", sections)
	}
	if sections[0].Units != "4" {
		t.Fatalf("numeric units not normalized: %q", sections[0].Units)
	}
}

func TestGECourses(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("geRequirementPrefix") != "ACORELIT" || q.Get("categoryPrefix") != "ACORELIT" {
			t.Errorf("unexpected GE query %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"courses":[]}`))
	}))

	courses, err := client.GECourses(context.Background(), "20261", "ACORELIT", "ACORELIT")
	if err != nil {
		t.Fatalf("GECourses: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected no courses, got %d", len(courses))
	}
}

func TestUnitsUnmarshalVariants(t *testing.T) {
	cases := map[string]Units{
		`4`:            "4",
		`"4"`:          "4",
		`4.0`:          "4",
		`1.5`:          "1.5",
		`"2-4"`:        "2-4",
		`["4","junk"]`: "4",
		`[2]`:          "2",
		`null`:         "",
		`[]`:           "",
	}
	for raw, want := range cases {
		var u Units
		if err := u.UnmarshalJSON([]byte(raw)); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", raw, err)
		}
		if u != want {
			t.Fatalf("UnmarshalJSON(%s) = %q, want %q", raw, u, want)
		}
	}
}
