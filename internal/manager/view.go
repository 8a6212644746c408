package manager

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"taskhub/internal/models"
)

type SortKey string

const (
	SortByDate  SortKey = "date"
	SortByTitle SortKey = "title"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// StatusAll disables status filtering.
const StatusAll = "all"

type ViewOptions struct {
	Query  string
	Status string // StatusAll or a models.Status value
	SortBy SortKey
	Order  SortOrder
	Locale language.Tag
}

// DefaultViewOptions shows every task, newest first.
func DefaultViewOptions() ViewOptions {
	return ViewOptions{
		Status: StatusAll,
		SortBy: SortByDate,
		Order:  OrderDesc,
	}
}

// ParseViewOptions validates raw filter inputs. Empty values keep the defaults.
func ParseViewOptions(query, status, sortBy, order string) (ViewOptions, error) {
	opts := DefaultViewOptions()
	opts.Query = query

	if status = strings.ToLower(strings.TrimSpace(status)); status != "" && status != StatusAll {
		s, err := models.ParseStatus(status)
		if err != nil {
			return ViewOptions{}, err
		}
		opts.Status = string(s)
	}

	switch SortKey(strings.ToLower(strings.TrimSpace(sortBy))) {
	case "":
	case SortByDate:
		opts.SortBy = SortByDate
	case SortByTitle:
		opts.SortBy = SortByTitle
	default:
		return ViewOptions{}, fmt.Errorf("unknown sort key %q", sortBy)
	}

	switch SortOrder(strings.ToLower(strings.TrimSpace(order))) {
	case "":
	case OrderAsc:
		opts.Order = OrderAsc
	case OrderDesc:
		opts.Order = OrderDesc
	default:
		return ViewOptions{}, fmt.Errorf("unknown sort order %q", order)
	}

	return opts, nil
}

// View filters and sorts a copy of tasks. The input slice is left untouched.
func View(tasks []models.Task, opts ViewOptions) []models.Task {
	out := make([]models.Task, 0, len(tasks))

	query := ""
	if strings.TrimSpace(opts.Query) != "" {
		query = strings.ToLower(opts.Query)
	}

	for _, t := range tasks {
		if query != "" && !matches(t, query) {
			continue
		}
		if opts.Status != "" && opts.Status != StatusAll && string(t.Status) != opts.Status {
			continue
		}
		out = append(out, t.Clone())
	}

	var cmp func(a, b models.Task) int
	switch opts.SortBy {
	case SortByTitle:
		c := collate.New(opts.Locale)
		cmp = func(a, b models.Task) int { return c.CompareString(a.Title, b.Title) }
	default:
		cmp = func(a, b models.Task) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
	if opts.Order == OrderDesc {
		asc := cmp
		cmp = func(a, b models.Task) int { return -asc(a, b) }
	}

	slices.SortStableFunc(out, cmp)
	return out
}

func matches(t models.Task, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(t.Title), lowerQuery) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), lowerQuery)
}

// Board is a view split into status columns.
type Board struct {
	Todo      []models.Task `json:"todo"`
	Completed []models.Task `json:"completed"`
	Canceled  []models.Task `json:"canceled"`
}

// Partition splits tasks by status, keeping their order within each column.
func Partition(tasks []models.Task) Board {
	b := Board{
		Todo:      []models.Task{},
		Completed: []models.Task{},
		Canceled:  []models.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusTodo:
			b.Todo = append(b.Todo, t)
		case models.StatusCompleted:
			b.Completed = append(b.Completed, t)
		case models.StatusCanceled:
			b.Canceled = append(b.Canceled, t)
		}
	}
	return b
}

// Column returns the tasks of one status column.
func (b Board) Column(s models.Status) []models.Task {
	switch s {
	case models.StatusCompleted:
		return b.Completed
	case models.StatusCanceled:
		return b.Canceled
	default:
		return b.Todo
	}
}
