package service

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/phrazzld/task-manager-api/internal/store"
)

// sortFields maps the sortBy names clients may send onto sortable columns.
var sortFields = map[string]store.TaskSortField{
	"description": store.SortDescription,
	"completed":   store.SortCompleted,
	"createdAt":   store.SortCreatedAt,
	"created_at":  store.SortCreatedAt,
	"updatedAt":   store.SortUpdatedAt,
	"updated_at":  store.SortUpdatedAt,
}

// ParseTaskQuery turns the query string of GET /tasks into a TaskQuery.
//
//   - completed=true|false filters by state; any value other than "true"
//     selects incomplete tasks.
//   - sortBy=field:direction orders the result; direction "desc" sorts
//     descending, anything else ascending. Unknown fields are ignored.
//   - limit and skip must be non-negative integers; anything else means
//     no limit or no skip.
func ParseTaskQuery(values url.Values) store.TaskQuery {
	var q store.TaskQuery

	if _, ok := values["completed"]; ok {
		completed := values.Get("completed") == "true"
		q.Completed = &completed
	}

	if sortBy := values.Get("sortBy"); sortBy != "" {
		name, direction, _ := strings.Cut(sortBy, ":")
		if field, ok := sortFields[name]; ok {
			q.SortBy = field
			q.SortDesc = direction == "desc"
		}
	}

	q.Limit = parseCount(values.Get("limit"))
	q.Skip = parseCount(values.Get("skip"))

	return q
}

func parseCount(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
