package common

import (
	"net/http"
	"strconv"
)

// PageParams carries validated pagination inputs for list endpoints.
type PageParams struct {
	Page  int
	Limit int
}

// ParsePageParams extracts page and limit query parameters, clamping the
// limit to maxLimit. Absent or invalid values fall back to the defaults.
func ParsePageParams(r *http.Request, defaultLimit, maxLimit int) PageParams {
	params := PageParams{
		Page:  atoiDefault(r.URL.Query().Get("page"), 1),
		Limit: atoiDefault(r.URL.Query().Get("limit"), defaultLimit),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if maxLimit > 0 && params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	if params.Limit < 1 {
		params.Limit = 1
	}
	return params
}

func atoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// Meta builds the response pagination block for a filtered total.
func (p PageParams) Meta(totalItems, totalPages int) PageMeta {
	return PageMeta{
		Page:       p.Page,
		PerPage:    p.Limit,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
