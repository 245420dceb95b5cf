package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/baechuer/curation-service/internal/domain"
)

// intParam returns def for an absent param and a validation error for a
// non-integer one. Range clamping is left to the services.
func intParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.ErrValidationMeta("invalid query param", map[string]string{name: "must be an integer"})
	}
	return n, nil
}

// boolParam accepts 1/0 and true/false.
func boolParam(q url.Values, name string) (*bool, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, domain.ErrValidationMeta("invalid query param", map[string]string{name: "must be true or false"})
	}
	return &b, nil
}

// limitParam reads ?limit=, falling back to ?pageSize= and ?page_size=.
func limitParam(q url.Values) (int, error) {
	for _, name := range []string{"limit", "pageSize", "page_size"} {
		if q.Has(name) {
			return intParam(q, name, 0)
		}
	}
	return 0, nil
}

func pageParams(q url.Values) (page, size int, err error) {
	if page, err = intParam(q, "page", 1); err != nil {
		return 0, 0, err
	}
	if q.Has("pageSize") {
		size, err = intParam(q, "pageSize", 0)
	} else {
		size, err = intParam(q, "page_size", 0)
	}
	return page, size, err
}
