package contest

import (
	"testing"
	"time"
)

func TestNewIDRoundTrip(t *testing.T) {
	tests := []struct {
		platform Platform
		native   string
		want     string
	}{
		{Codeforces, "1900", "codeforces_1900"},
		{LeetCode, "weekly-contest-400", "leetcode_weekly-contest-400"},
		{CodeChef, "START120", "codechef_START120"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id := NewID(tt.platform, tt.native)
			if id != tt.want {
				t.Fatalf("NewID() = %q, want %q", id, tt.want)
			}
			p, native, err := SplitID(id)
			if err != nil {
				t.Fatalf("SplitID() failed: %v", err)
			}
			if p != tt.platform || native != tt.native {
				t.Errorf("SplitID() = (%s, %s), want (%s, %s)", p, native, tt.platform, tt.native)
			}
		})
	}
}

func TestSplitIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "codeforces", "codeforces_", "atcoder_abc300"} {
		if _, _, err := SplitID(id); err == nil {
			t.Errorf("SplitID(%q) should fail", id)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{"Codeforces", Codeforces, false},
		{"leetcode", LeetCode, false},
		{" CODECHEF ", CodeChef, false},
		{"atcoder", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePlatform(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePlatform(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePlatform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatISTIgnoresStoredOffset(t *testing.T) {
	utc := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	pst := utc.In(time.FixedZone("PST", -8*3600))

	for _, ts := range []time.Time{utc, pst} {
		if got := FormatIST(ts); got != "2024-03-01 20:00 IST" {
			t.Errorf("FormatIST(%v) = %q, want %q", ts, got, "2024-03-01 20:00 IST")
		}
	}
}

func TestContestWindow(t *testing.T) {
	c := Contest{
		Platform:        Codeforces,
		Title:           "Codeforces Round 900",
		StartTime:       time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		DurationSeconds: 9000,
	}
	if want := time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC); !c.End().Equal(want) {
		t.Errorf("End() = %v, want %v", c.End(), want)
	}
	if got := c.Summary(); got != "Codeforces: Codeforces Round 900" {
		t.Errorf("Summary() = %q", got)
	}
	if got := FormatDuration(c.DurationSeconds); got != "2.5 hours" {
		t.Errorf("FormatDuration() = %q", got)
	}
}
