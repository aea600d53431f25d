package sources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/pkg/logger"
)

// codeforcesPhaseBefore marks contests that have not started yet.
const codeforcesPhaseBefore = "BEFORE"

// codeforcesResponse is the contest.list payload.
type codeforcesResponse struct {
	Status  string              `json:"status"`
	Comment string              `json:"comment"`
	Result  []codeforcesContest `json:"result"`
}

type codeforcesContest struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	DurationSeconds  int64  `json:"durationSeconds"`
	StartTimeSeconds *int64 `json:"startTimeSeconds"`
}

// Codeforces reads the public contest.list API.
type Codeforces struct {
	baseURL string
	client  *http.Client
}

// NewCodeforces creates the Codeforces source.
func NewCodeforces(cfg config.SourceConfig) *Codeforces {
	return &Codeforces{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg),
	}
}

// Platform implements Source.
func (s *Codeforces) Platform() contest.Platform {
	return contest.Codeforces
}

// Fetch implements Source.
func (s *Codeforces) Fetch(ctx context.Context) ([]contest.Contest, error) {
	req, err := http.NewRequest(http.MethodGet, s.baseURL+"/api/contest.list", nil)
	if err != nil {
		return nil, err
	}

	var payload codeforcesResponse
	if err := doJSON(ctx, s.client, req, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" {
		return nil, fmt.Errorf("codeforces returned status %q: %s", payload.Status, payload.Comment)
	}

	return normalizeCodeforces(payload.Result), nil
}

func normalizeCodeforces(entries []codeforcesContest) []contest.Contest {
	contests := make([]contest.Contest, 0)
	for _, e := range entries {
		if e.Phase != codeforcesPhaseBefore {
			continue
		}
		if e.StartTimeSeconds == nil {
			logger.Warn().Int64("contest", e.ID).Msg("Codeforces contest without start time, skipping")
			continue
		}
		if e.DurationSeconds < 0 {
			logger.Warn().Int64("contest", e.ID).Msg("Codeforces contest with negative duration, skipping")
			continue
		}

		native := strconv.FormatInt(e.ID, 10)
		contests = append(contests, contest.Contest{
			ID:              contest.NewID(contest.Codeforces, native),
			Platform:        contest.Codeforces,
			Title:           e.Name,
			StartTime:       time.Unix(*e.StartTimeSeconds, 0).UTC(),
			DurationSeconds: e.DurationSeconds,
			URL:             "https://codeforces.com/contest/" + native,
		})
	}
	return contests
}
