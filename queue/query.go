package queue

import (
	"sort"
	"strings"

	"github.com/GoCodeAlone/dispatch/task"
)

// SortField selects the Query sort key.
type SortField string

const (
	SortByPriority  SortField = "priority"
	SortByCreatedAt SortField = "created_at"
)

// SortOrder selects the Query sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filter controls which tasks Query returns. Zero-valued fields do not
// filter. Tags match any. Search is a case-insensitive substring match
// over the function name and description.
type Filter struct {
	Status    []task.Status
	Priority  *task.Priority
	Tags      []string
	ProjectID string
	Search    string
	SortBy    SortField
	SortOrder SortOrder
	Limit     int
	Offset    int
}

func (f Filter) matches(t *task.Task) bool {
	if len(f.Status) > 0 {
		found := false
		for _, s := range f.Status {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
	tags:
		for _, want := range f.Tags {
			for _, have := range t.Tags {
				if want == have {
					found = true
					break tags
				}
			}
		}
		if !found {
			return false
		}
	}
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Function.Name), needle) &&
			!strings.Contains(strings.ToLower(t.Function.Description), needle) {
			return false
		}
	}
	return true
}

// Query returns task snapshots matching the filter, sorted, then
// paginated. Pagination applies after filtering and sorting. Without an
// explicit sort the insertion order is kept.
func (q *Queue) Query(f Filter) []*task.Task {
	var out []*task.Task
	for _, t := range q.Snapshot() {
		if f.matches(t) {
			out = append(out, t)
		}
	}

	desc := f.SortOrder == SortDesc
	switch f.SortBy {
	case SortByPriority:
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].Priority > out[j].Priority
			}
			return out[i].Priority < out[j].Priority
		})
	case SortByCreatedAt:
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out
}

// Stats aggregates the live collection in a single scan.
type Stats struct {
	Total      int                   `json:"total"`
	ByStatus   map[task.Status]int   `json:"by_status"`
	ByPriority map[task.Priority]int `json:"by_priority"`
}

// Stats returns total, per-status, and per-priority counts. Nothing is
// cached; every call rescans the collection.
func (q *Queue) Stats() Stats {
	s := Stats{
		ByStatus:   make(map[task.Status]int),
		ByPriority: make(map[task.Priority]int),
	}
	for _, t := range q.Snapshot() {
		s.Total++
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
	}
	return s
}
