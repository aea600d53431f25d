package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/user/contestcal/internal/booking"
	"github.com/user/contestcal/internal/contest"
)

// parseContestsArgs parses "[platform] [days]" in either order.
func parseContestsArgs(args string, defaultDays int) (contest.Platform, int, error) {
	var platform contest.Platform
	days := defaultDays

	for _, tok := range strings.Fields(args) {
		if n, err := strconv.Atoi(tok); err == nil {
			if n < 0 {
				return "", 0, fmt.Errorf("days must not be negative")
			}
			days = n
			continue
		}
		p, err := contest.ParsePlatform(tok)
		if err != nil {
			return "", 0, err
		}
		platform = p
	}
	return platform, days, nil
}

// parseDaysArg parses an optional day count.
func parseDaysArg(args string, defaultDays int) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return defaultDays, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("days must be a non-negative number")
	}
	return n, nil
}

// parseBookArgs parses "<contest_id> [minutes...] [force]".
func parseBookArgs(args string) (booking.BookRequest, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return booking.BookRequest{}, fmt.Errorf("contest id is required")
	}

	req := booking.BookRequest{ContestID: fields[0]}
	if _, _, err := contest.SplitID(req.ContestID); err != nil {
		return booking.BookRequest{}, err
	}

	for _, tok := range fields[1:] {
		if strings.EqualFold(tok, "force") {
			req.Force = true
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return booking.BookRequest{}, fmt.Errorf("unexpected argument %q", tok)
		}
		req.Reminders = append(req.Reminders, n)
	}
	return req, nil
}

// parseMinutes parses a list of reminder minutes.
func parseMinutes(args string) ([]int, error) {
	fields := strings.Fields(strings.ReplaceAll(args, ",", " "))
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one reminder is required")
	}
	minutes := make([]int, 0, len(fields))
	for _, tok := range fields {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number of minutes", tok)
		}
		minutes = append(minutes, n)
	}
	return minutes, nil
}
