package services

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const (
	StatusApproved = "approved"
	StatusPending  = "pending"

	LiveUp   = "up"
	LiveDown = "down"
)

var logoURLPattern = regexp.MustCompile(`^https?://\S+$`)

// SiteQuery is the SQL fragment set produced from list parameters.
// Where is empty or a full "WHERE ..." clause with positional args;
// Order is a full "ORDER BY ..." clause.
type SiteQuery struct {
	Where string
	Order string
	Args  []interface{}
}

// BuildSiteQuery translates the status filter, free-text search and sort
// parameters into SQL. Search matches the query case-insensitively as a
// literal substring of name or url; LIKE metacharacters in the input are
// escaped so they never act as wildcards.
func BuildSiteQuery(status, q, sort, dir string) SiteQuery {
	clauses := []string{}
	args := []interface{}{}

	if status == StatusApproved || status == StatusPending {
		args = append(args, status)
		clauses = append(clauses, "status = $1")
	}
	if term := strings.TrimSpace(q); term != "" {
		args = append(args, "%"+EscapeLike(strings.ToLower(term))+"%")
		placeholder := "$" + strconv.Itoa(len(args))
		clauses = append(clauses, strings.ReplaceAll(
			`(lower(name) LIKE $N ESCAPE '\' OR lower(url) LIKE $N ESCAPE '\')`,
			"$N", placeholder))
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	column := "created_at"
	if sort == "name" {
		column = "name"
	}
	direction := "DESC"
	if dir == "asc" {
		direction = "ASC"
	}

	return SiteQuery{
		Where: where,
		Order: "ORDER BY " + column + " " + direction,
		Args:  args,
	}
}

// EscapeLike makes a string safe to embed in a LIKE pattern so it only
// ever matches literally.
func EscapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// ClampPageSize bounds a requested page size to [1, 60], substituting
// the fallback when the request carries none.
func ClampPageSize(requested, fallback int) int {
	if requested == 0 {
		requested = fallback
	}
	if requested < 1 {
		return 1
	}
	if requested > 60 {
		return 60
	}
	return requested
}

// NormalizeRequired trims value and fails with message when nothing is left.
func NormalizeRequired(value, message string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errors.New(message)
	}
	return trimmed, nil
}

// NormalizeLogoURL trims an optional logo URL, coercing empty input to
// absent. A present value must be an http(s) URL.
func NormalizeLogoURL(value *string, field string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if !logoURLPattern.MatchString(trimmed) {
		return nil, errors.New(field + " must be an http(s) URL")
	}
	return &trimmed, nil
}

// NormalizeStatus admits only the exact "approved" value; everything else
// falls back to "pending".
func NormalizeStatus(raw string) string {
	if raw == StatusApproved {
		return StatusApproved
	}
	return StatusPending
}

// NormalizeLive admits only "up"/"down"; otherwise the default follows the
// site's status, up for approved and down for pending.
func NormalizeLive(raw, status string) string {
	if raw == LiveUp || raw == LiveDown {
		return raw
	}
	if status == StatusApproved {
		return LiveUp
	}
	return LiveDown
}

// SplitList accepts a JSON array of strings or a comma-separated string
// and returns the cleaned entries. Anything else yields an empty list.
func SplitList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return CleanList(items)
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return CleanList(strings.Split(joined, ","))
	}
	return []string{}
}

// CleanList trims entries, drops empties and duplicates, and caps the
// result at 12.
func CleanList(items []string) []string {
	seen := make(map[string]bool)
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		value := strings.TrimSpace(item)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		cleaned = append(cleaned, value)
		if len(cleaned) >= 12 {
			break
		}
	}
	return cleaned
}
