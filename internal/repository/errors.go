package repository

import (
	"fmt"
	"strings"

	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/pkg/errors"
)

// translate maps storage errors onto the apperr taxonomy. Anything it does not
// recognise is wrapped with the entity it concerns.
func translate(err error, entity, key string) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFound(err):
		return apperr.NotFound(entity, key)
	case pg.IsUniqueViolation(err):
		msg := entity + " already exists"
		if key != "" {
			msg = fmt.Sprintf("%s %s already exists", entity, key)
		}
		return apperr.Integrity(msg, err)
	}
	return errors.Wrapf(err, "%s %s", entity, key)
}

const (
	defaultLimit = 50
	maxLimit     = 1000
)

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// likePattern builds a case-insensitive substring pattern for LOWER(col) LIKE ?.
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
