package parser

import (
	"context"

	"github.com/cogsched/cogsched/internal/domain"
)

// Fallback tries the primary parser and falls back to the secondary when the
// primary errors. Used to keep chat working when the LLM is unreachable.
type Fallback struct {
	Primary   domain.TaskParser
	Secondary domain.TaskParser
}

var _ domain.TaskParser = Fallback{}

// Parse delegates to Primary, then Secondary.
func (f Fallback) Parse(ctx context.Context, message string) ([]domain.Task, error) {
	tasks, err := f.Primary.Parse(ctx, message)
	if err == nil {
		return tasks, nil
	}
	if f.Secondary == nil {
		return nil, err
	}
	return f.Secondary.Parse(ctx, message)
}
