package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/internal/contest"
)

const leetcodeContestsQuery = `
query {
    allContests {
        title
        titleSlug
        startTime
        duration
    }
}`

type leetcodeResponse struct {
	Data struct {
		AllContests []leetcodeContest `json:"allContests"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type leetcodeContest struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	StartTime int64  `json:"startTime"`
	Duration  int64  `json:"duration"`
}

// LeetCode reads the GraphQL contest listing. The listing includes past
// contests, so only entries starting after now are kept.
type LeetCode struct {
	baseURL string
	client  *http.Client
	now     Clock
}

// NewLeetCode creates the LeetCode source.
func NewLeetCode(cfg config.SourceConfig, now Clock) *LeetCode {
	if now == nil {
		now = time.Now
	}
	return &LeetCode{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg),
		now:     now,
	}
}

// Platform implements Source.
func (s *LeetCode) Platform() contest.Platform {
	return contest.LeetCode
}

// Fetch implements Source.
func (s *LeetCode) Fetch(ctx context.Context) ([]contest.Contest, error) {
	body, err := json.Marshal(map[string]string{"query": leetcodeContestsQuery})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", s.baseURL+"/contest/")

	var payload leetcodeResponse
	if err := doJSON(ctx, s.client, req, &payload); err != nil {
		return nil, err
	}
	if len(payload.Errors) > 0 {
		return nil, fmt.Errorf("leetcode graphql error: %s", payload.Errors[0].Message)
	}

	return normalizeLeetCode(payload.Data.AllContests, s.now()), nil
}

func normalizeLeetCode(entries []leetcodeContest, now time.Time) []contest.Contest {
	contests := make([]contest.Contest, 0)
	for _, e := range entries {
		if e.TitleSlug == "" {
			continue
		}
		start := time.Unix(e.StartTime, 0).UTC()
		if !start.After(now) {
			continue
		}

		contests = append(contests, contest.Contest{
			ID:              contest.NewID(contest.LeetCode, e.TitleSlug),
			Platform:        contest.LeetCode,
			Title:           e.Title,
			StartTime:       start,
			DurationSeconds: e.Duration,
			URL:             "https://leetcode.com/contest/" + e.TitleSlug,
		})
	}
	return contests
}
