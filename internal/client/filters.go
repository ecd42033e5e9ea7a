package client

import (
	"sort"
	"strings"

	"github.com/deskhub/tasksync/internal/task"
)

// SortField names the single field the view is ordered by.
type SortField string

const (
	SortByNumber   SortField = "number"
	SortByTitle    SortField = "title"
	SortByStatus   SortField = "status"
	SortByPriority SortField = "priority"
	SortByDueDate  SortField = "dueDate"
	SortByCreated  SortField = "createdAt"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Filters is the per-user view configuration. The zero value of each
// criterion means "not filtered"; for AssigneeID the sentinel "none" selects
// unassigned tasks. Filters never touch the collection, Apply works on a
// copy.
type Filters struct {
	Search        string           `json:"search,omitempty" yaml:"search,omitempty"`
	Status        task.Status      `json:"status,omitempty" yaml:"status,omitempty"`
	Priority      task.Priority    `json:"priority,omitempty" yaml:"priority,omitempty"`
	NetworkType   task.NetworkType `json:"networkType,omitempty" yaml:"network_type,omitempty"`
	AssigneeID    string           `json:"assigneeId,omitempty" yaml:"assignee_id,omitempty"`
	ShowArchived  bool             `json:"showArchived" yaml:"show_archived"`
	SortField     SortField        `json:"sortField" yaml:"sort_field"`
	SortDirection SortDirection    `json:"sortDirection" yaml:"sort_direction"`
}

// AssigneeNone selects tasks without an assignee.
const AssigneeNone = "none"

func DefaultFilters() Filters {
	return Filters{
		SortField:     SortByNumber,
		SortDirection: SortDesc,
	}
}

var statusRank = map[task.Status]int{
	task.StatusNew:        0,
	task.StatusInProgress: 1,
	task.StatusReview:     2,
	task.StatusCompleted:  3,
}

var priorityRank = map[task.Priority]int{
	task.PriorityLow:    0,
	task.PriorityMedium: 1,
	task.PriorityHigh:   2,
}

// Apply filters and sorts the given tasks. The input slice is not modified;
// the returned slice shares the task pointers.
func (f Filters) Apply(tasks []*task.Task) []*task.Task {
	out := make([]*task.Task, 0, len(tasks))
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, t := range tasks {
		if !f.matches(t, search) {
			continue
		}
		out = append(out, t)
	}
	f.sortTasks(out)
	return out
}

func (f Filters) matches(t *task.Task, search string) bool {
	// The archived and active views are disjoint. A task archived or restored
	// by a remote change moves between them without a refetch.
	if t.IsArchived != f.ShowArchived {
		return false
	}
	if search != "" &&
		!strings.Contains(strings.ToLower(t.Title), search) &&
		!strings.Contains(strings.ToLower(t.Description), search) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.NetworkType != "" && t.NetworkType != f.NetworkType {
		return false
	}
	switch f.AssigneeID {
	case "":
	case AssigneeNone:
		if t.Assignee != nil {
			return false
		}
	default:
		if t.Assignee == nil || t.Assignee.ID != f.AssigneeID {
			return false
		}
	}
	return true
}

func (f Filters) sortTasks(tasks []*task.Task) {
	field := f.SortField
	if field == "" {
		field = SortByNumber
	}
	desc := f.SortDirection == SortDesc
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if field == SortByDueDate {
			// Tasks without a due date sort last in either direction.
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return false
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			}
		}
		if desc {
			a, b = b, a
		}
		return lessBy(field, a, b)
	})
}

func lessBy(field SortField, a, b *task.Task) bool {
	switch field {
	case SortByTitle:
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case SortByStatus:
		return statusRank[a.Status] < statusRank[b.Status]
	case SortByPriority:
		return priorityRank[a.Priority] < priorityRank[b.Priority]
	case SortByDueDate:
		return a.DueDate.Before(*b.DueDate)
	case SortByCreated:
		return a.CreatedAt.Before(b.CreatedAt)
	default:
		return a.TaskNumber < b.TaskNumber
	}
}
