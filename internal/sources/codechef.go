package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/pkg/logger"
)

const codechefListPath = "/api/list/contests/all?sort_by=START&sorting_order=asc&offset=0&mode=premium"

// codechefResponse keeps future_contests raw so each entry is decoded on
// its own and one bad entry cannot spoil the batch.
type codechefResponse struct {
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	FutureContests []json.RawMessage `json:"future_contests"`
}

type codechefContest struct {
	Code     string          `json:"contest_code"`
	Name     string          `json:"contest_name"`
	StartISO string          `json:"contest_start_date_iso"`
	Duration codechefMinutes `json:"contest_duration"`
}

// codechefMinutes accepts a duration in minutes encoded as a number or a
// numeric string.
type codechefMinutes int64

// UnmarshalJSON implements json.Unmarshaler.
func (m *codechefMinutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("contest_duration %q is not a whole number of minutes", data)
	}
	*m = codechefMinutes(n)
	return nil
}

// CodeChef reads the contest list API, "future" bucket only.
type CodeChef struct {
	baseURL string
	client  *http.Client
}

// NewCodeChef creates the CodeChef source.
func NewCodeChef(cfg config.SourceConfig) *CodeChef {
	return &CodeChef{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg),
	}
}

// Platform implements Source.
func (s *CodeChef) Platform() contest.Platform {
	return contest.CodeChef
}

// Fetch implements Source.
func (s *CodeChef) Fetch(ctx context.Context) ([]contest.Contest, error) {
	req, err := http.NewRequest(http.MethodGet, s.baseURL+codechefListPath, nil)
	if err != nil {
		return nil, err
	}

	var payload codechefResponse
	if err := doJSON(ctx, s.client, req, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "success" {
		return nil, fmt.Errorf("codechef returned status %q: %s", payload.Status, payload.Message)
	}

	contests := make([]contest.Contest, 0, len(payload.FutureContests))
	for i, raw := range payload.FutureContests {
		c, err := normalizeCodeChef(raw)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("Skipping malformed CodeChef contest")
			continue
		}
		contests = append(contests, c)
	}

	logger.Debug().Int("received", len(payload.FutureContests)).Int("kept", len(contests)).Msg("CodeChef contests normalized")
	return contests, nil
}

// normalizeCodeChef parses one future_contests entry. The start time carries
// its own offset (+05:30) and is converted to UTC.
func normalizeCodeChef(raw json.RawMessage) (contest.Contest, error) {
	var e codechefContest
	if err := json.Unmarshal(raw, &e); err != nil {
		return contest.Contest{}, err
	}
	if e.Code == "" {
		return contest.Contest{}, fmt.Errorf("missing contest_code")
	}

	start, err := time.Parse(time.RFC3339, e.StartISO)
	if err != nil {
		return contest.Contest{}, fmt.Errorf("contest %s: bad start date %q: %w", e.Code, e.StartISO, err)
	}
	if e.Duration < 0 {
		return contest.Contest{}, fmt.Errorf("contest %s: negative duration", e.Code)
	}

	return contest.Contest{
		ID:              contest.NewID(contest.CodeChef, e.Code),
		Platform:        contest.CodeChef,
		Title:           e.Name,
		StartTime:       start.UTC(),
		DurationSeconds: int64(e.Duration) * 60,
		URL:             "https://www.codechef.com/" + e.Code,
	}, nil
}
