package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ppe-monitor/internal/models"
)

const (
	defaultViolationLimit = 10
	maxViolationLimit     = 100

	defaultOffenderDays = 7
	maxOffenderDays     = 365
)

var errMissingArgs = errors.New("missing arguments")

// parseLimit reads an optional positive count capped at maxViolationLimit.
func parseLimit(args string) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return defaultViolationLimit, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count %q", args)
	}
	if n > maxViolationLimit {
		n = maxViolationLimit
	}
	return n, nil
}

// parseViolationQuery splits "[worker description...] [N]". A trailing integer is
// always read as the count.
func parseViolationQuery(args string) (worker string, limit int, err error) {
	fields := strings.Fields(args)
	count := ""
	if n := len(fields); n > 0 {
		if _, convErr := strconv.Atoi(fields[n-1]); convErr == nil {
			count = fields[n-1]
			fields = fields[:n-1]
		}
	}
	if limit, err = parseLimit(count); err != nil {
		return "", 0, err
	}
	return strings.Join(fields, " "), limit, nil
}

func parseViolationID(args string) (uint, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return 0, fmt.Errorf("%w: violation id", errMissingArgs)
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(args, "#"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid violation id %q", args)
	}
	return uint(id), nil
}

// parseDays reads an optional look-back window in days, capped at maxOffenderDays.
func parseDays(args string) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return defaultOffenderDays, nil
	}
	n, err := strconv.Atoi(args)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid number of days %q", args)
	}
	if n > maxOffenderDays {
		n = maxOffenderDays
	}
	return n, nil
}

// parseCameraID returns the camera named in args. With no argument and a single
// camera configured, that camera is used.
func parseCameraID(args string, ids []string) (string, error) {
	id := strings.TrimSpace(args)
	if id != "" {
		return id, nil
	}
	if len(ids) == 1 {
		return ids[0], nil
	}
	return "", fmt.Errorf("%w: camera id", errMissingArgs)
}

// parseAttendance splits "<employee_id> <status> [notes...]".
func parseAttendance(args string) (employeeID, status, notes string, err error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", "", "", fmt.Errorf("%w: employee id and status", errMissingArgs)
	}
	status = strings.ToLower(fields[1])
	if !models.ValidAttendanceStatus(status) {
		return "", "", "", fmt.Errorf("invalid status %q", fields[1])
	}
	return fields[0], status, strings.Join(fields[2:], " "), nil
}

// parseLeave splits "<employee_id> <total> <remaining>".
func parseLeave(args string) (employeeID string, total, remaining float64, err error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return "", 0, 0, fmt.Errorf("%w: employee id, total and remaining", errMissingArgs)
	}
	if total, err = parseAmount(fields[1]); err != nil {
		return "", 0, 0, err
	}
	if remaining, err = parseAmount(fields[2]); err != nil {
		return "", 0, 0, err
	}
	return fields[0], total, remaining, nil
}

// parsePenalty splits "<category> <amount>".
func parsePenalty(args string) (string, float64, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", 0, fmt.Errorf("%w: category and amount", errMissingArgs)
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return "", 0, err
	}
	return strings.ToLower(fields[0]), amount, nil
}

// parseAmount accepts a non-negative number, with a comma as the decimal separator too.
func parseAmount(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, fmt.Errorf("%w: amount", errMissingArgs)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return v, nil
}

func parseToggle(args string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on", "enable", "true", "1":
		return true, nil
	case "off", "disable", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", strings.TrimSpace(args))
}
