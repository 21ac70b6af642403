package rmp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/coursex/coursex-backend/internal/pkg/httpx"
	"github.com/coursex/coursex-backend/internal/platform/envutil"
	"github.com/coursex/coursex-backend/internal/platform/logger"
)

const (
	defaultGraphqlURL = "https://www.ratemyprofessors.com/graphql"
	defaultSchoolID   = "U2Nob29sLTEzODE="
	pageSize          = 1000
	pagePause         = time.Second
)

// ProfessorRating is one rating snapshot keyed by display name. Duplicate
// names upstream are averaged with the rating-source id dropped, since the
// name is the stable key on our side.
type ProfessorRating struct {
	Name                string
	RmpID               *int64
	Difficulty          *float64
	Rating              *float64
	RatingCount         *int
	TakeAgainPercentage *float64
}

type Client struct {
	graphqlURL string
	schoolID   string
	http       *http.Client
	log        *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return &Client{
		graphqlURL: envutil.String("RMP_GRAPHQL_URL", defaultGraphqlURL),
		schoolID:   envutil.String("RMP_SCHOOL_ID", defaultSchoolID),
		http:       &http.Client{Timeout: 60 * time.Second},
		log:        log.With("client", "RMP"),
	}
}

type teacherNode struct {
	LegacyID              *int64   `json:"legacyId"`
	FirstName             string   `json:"firstName"`
	LastName              string   `json:"lastName"`
	AvgDifficulty         *float64 `json:"avgDifficulty"`
	AvgRating             *float64 `json:"avgRating"`
	NumRatings            *int     `json:"numRatings"`
	WouldTakeAgainPercent *float64 `json:"wouldTakeAgainPercent"`
}

type searchResponse struct {
	Data struct {
		Search struct {
			Teachers struct {
				Edges []struct {
					Node teacherNode `json:"node"`
				} `json:"edges"`
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
			} `json:"teachers"`
		} `json:"search"`
	} `json:"data"`
}

// AllProfessors pages through the school's full teacher list.
func (c *Client) AllProfessors(ctx context.Context) ([]ProfessorRating, error) {
	byName := map[string][]teacherNode{}
	order := []string{}
	cursor := ""
	page := 0
	for {
		resp, err := c.searchPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("rating search page %d: %w", page+1, err)
		}
		teachers := resp.Data.Search.Teachers
		page++
		c.log.Info("Fetched rating page", "page", page, "teachers", len(teachers.Edges))

		for _, edge := range teachers.Edges {
			name := strings.TrimSpace(edge.Node.FirstName + " " + edge.Node.LastName)
			if name == "" {
				continue
			}
			if _, ok := byName[name]; !ok {
				order = append(order, name)
			}
			byName[name] = append(byName[name], edge.Node)
		}

		if !teachers.PageInfo.HasNextPage || teachers.PageInfo.EndCursor == "" {
			break
		}
		cursor = teachers.PageInfo.EndCursor
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pagePause):
		}
	}

	rows := make([]ProfessorRating, 0, len(order))
	for _, name := range order {
		rows = append(rows, mergeEntries(name, byName[name]))
	}
	return rows, nil
}

func (c *Client) searchPage(ctx context.Context, cursor string) (*searchResponse, error) {
	payload := map[string]interface{}{
		"query": pagedQuery(cursor),
		"variables": map[string]interface{}{
			"query":               map[string]interface{}{"text": "", "schoolID": c.schoolID, "fallback": true},
			"schoolID":            c.schoolID,
			"includeSchoolFilter": true,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out searchResponse
	err = httpx.RetryJSON(ctx, c.http, 3, 2*time.Second, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "null")
		req.Header.Set("Origin", "https://www.ratemyprofessors.com")
		req.Header.Set("Referer", "https://www.ratemyprofessors.com/search/professors")
		return req, nil
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func pagedQuery(cursor string) string {
	return strings.Replace(teacherSearchQuery,
		`first: 1000, after: ""`,
		fmt.Sprintf(`first: %d, after: %q`, pageSize, cursor), 1)
}

func mergeEntries(name string, entries []teacherNode) ProfessorRating {
	if len(entries) == 1 {
		e := entries[0]
		return ProfessorRating{
			Name:                name,
			RmpID:               e.LegacyID,
			Difficulty:          e.AvgDifficulty,
			Rating:              e.AvgRating,
			RatingCount:         e.NumRatings,
			TakeAgainPercentage: e.WouldTakeAgainPercent,
		}
	}
	row := ProfessorRating{Name: name}
	row.Difficulty = avgFloat(entries, func(e teacherNode) *float64 { return e.AvgDifficulty })
	row.Rating = avgFloat(entries, func(e teacherNode) *float64 { return e.AvgRating })
	row.TakeAgainPercentage = avgFloat(entries, func(e teacherNode) *float64 { return e.WouldTakeAgainPercent })
	var counts []int
	for _, e := range entries {
		if e.NumRatings != nil {
			counts = append(counts, *e.NumRatings)
		}
	}
	if len(counts) > 0 {
		sum := 0
		for _, v := range counts {
			sum += v
		}
		avg := sum / len(counts)
		row.RatingCount = &avg
	}
	return row
}

func avgFloat(entries []teacherNode, pick func(teacherNode) *float64) *float64 {
	var vals []float64
	for _, e := range entries {
		if v := pick(e); v != nil {
			vals = append(vals, *v)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	avg := math.Round(sum/float64(len(vals))*100) / 100
	return &avg
}
