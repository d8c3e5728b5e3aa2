package workspace

import (
	"strconv"
	"strings"
	"time"
)

// parseList understands the block format ws_list prints:
//
//	id: shuttle-cache
//	     workspace directory  : /ssd/ws/user-shuttle-cache
//	     remaining time       : 29 days 23 hours
//	     filesystem name      : ssd
//	     available extensions : 10
//
// Lines before the first "id:" (banner noise) are ignored.
func parseList(lines []string) []Entry {
	var entries []Entry
	var current *Entry

	flush := func() {
		if current != nil && current.Name != "" {
			entries = append(entries, *current)
		}
		current = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if name, ok := strings.CutPrefix(trimmed, "id:"); ok {
			flush()
			current = &Entry{Name: strings.TrimSpace(name)}
			continue
		}
		if current == nil {
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "workspace directory":
			current.Path = value
		case "filesystem name":
			current.Filesystem = value
		case "remaining time":
			current.Remaining = parseRemaining(value)
		case "available extensions":
			if n, err := strconv.Atoi(value); err == nil {
				current.Extensions = n
			}
		}
	}
	flush()
	return entries
}

// parseRemaining reads "29 days 23 hours 12 minutes" style durations.
// Unrecognized units are skipped.
func parseRemaining(value string) time.Duration {
	fields := strings.Fields(value)
	var total time.Duration
	for i := 0; i+1 < len(fields); i += 2 {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(strings.ToLower(fields[i+1]), ",") {
		case "day", "days":
			total += time.Duration(n) * 24 * time.Hour
		case "hour", "hours":
			total += time.Duration(n) * time.Hour
		case "minute", "minutes":
			total += time.Duration(n) * time.Minute
		case "second", "seconds":
			total += time.Duration(n) * time.Second
		}
	}
	return total
}
