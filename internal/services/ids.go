package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const (
	StudentCodePrefix  = "STU"
	EmployeeCodePrefix = "TCH"
)

// CodeSource returns the lexicographically greatest code starting with a
// prefix, or "" when there is none.
type CodeSource interface {
	MaxCode(ctx context.Context, prefix string) (string, error)
}

// NextCode returns "{kind}-{year}-{seq}" with seq one past the greatest
// existing code for that year, zero padded to four digits. The greatest code
// is found by string ordering, so sequences past 9999 sort before shorter ones.
func NextCode(ctx context.Context, src CodeSource, kind string, year int) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", kind, year)
	last, err := src.MaxCode(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		n, err := strconv.Atoi(last[strings.LastIndex(last, "-")+1:])
		if err != nil {
			return "", fmt.Errorf("parse sequence of %q: %w", last, err)
		}
		seq = n + 1
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// BatchCode derives a code from the last whitespace separated word of the
// batch name: "Batch 21" becomes "B21".
func BatchCode(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return "B" + fields[len(fields)-1]
}
