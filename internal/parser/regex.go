// Package parser turns free-text requests into structured tasks.
//
// Two implementations sit behind domain.TaskParser: an LLM-backed parser and
// a regex fallback for when no LLM is reachable. The engine itself only ever
// receives already-structured tasks.
package parser

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cogsched/cogsched/internal/domain"
)

// Regex is the offline fallback parser. It splits the message into clauses
// and keeps every clause that names a duration ("2 hours", "45 min") or a
// recognizable subject.
type Regex struct{}

var _ domain.TaskParser = Regex{}

var (
	durationRe = regexp.MustCompile(`(?i)(?:for\s+)?(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)
	clauseRe   = regexp.MustCompile(`(?i)\s*(?:,|;|\band\b|\bthen\b)\s*`)
	fillerRe   = regexp.MustCompile(`(?i)^(?:i\s+(?:want|need|have)\s+to|please|today|work\s+on|study|do|finish|prepare)\s+`)
)

// categoryKeywords maps subject words to the load-estimation categories.
var categoryKeywords = map[string]string{
	"math": "math", "calculus": "math", "algebra": "math", "statistics": "math", "proof": "math",
	"code": "programming", "coding": "programming", "programming": "programming",
	"algorithm": "programming", "project": "programming", "ml": "programming", "debug": "programming",
	"physics": "science", "chemistry": "science", "chem": "science", "biology": "science", "lab": "science",
	"essay": "writing", "write": "writing", "writing": "writing", "thesis": "writing", "report": "writing",
	"read": "reading", "reading": "reading", "chapter": "reading", "paper": "reading",
	"review": "review", "revise": "review", "flashcards": "review", "notes": "review",
}

// Parse extracts tasks from a free-text message.
func (Regex) Parse(_ context.Context, message string) ([]domain.Task, error) {
	var tasks []domain.Task
	for _, clause := range clauseRe.Split(message, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}

		minutes := 0
		loc := durationRe.FindStringSubmatchIndex(clause)
		if loc != nil {
			m := durationRe.FindStringSubmatch(clause)
			n, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				if strings.HasPrefix(strings.ToLower(m[2]), "h") {
					minutes = int(math.Round(n * 60))
				} else {
					minutes = int(math.Round(n))
				}
			}
		}

		category := categoryFor(clause)
		if minutes == 0 && category == "" {
			continue // not a task clause
		}
		if minutes == 0 {
			minutes = 60
		}
		if category == "" {
			category = "general"
		}

		title := clause
		if loc != nil {
			title = strings.TrimSpace(clause[:loc[0]] + clause[loc[1]:])
		}
		title = fillerRe.ReplaceAllString(title, "")
		title = strings.Trim(title, " .,:-")
		if title == "" {
			title = fmt.Sprintf("Task %d", len(tasks)+1)
		}

		tasks = append(tasks, domain.Task{
			Title:           capitalize(title),
			Category:        category,
			Difficulty:      difficultyFor(clause),
			DurationMinutes: minutes,
		})
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("message %q: %w", truncate(message, 60), domain.ErrParseFailed)
	}
	return tasks, nil
}

func categoryFor(clause string) string {
	for _, word := range strings.Fields(strings.ToLower(clause)) {
		word = strings.Trim(word, ".,:;!?")
		if cat, ok := categoryKeywords[word]; ok {
			return cat
		}
	}
	return ""
}

func difficultyFor(clause string) float64 {
	lower := strings.ToLower(clause)
	switch {
	case strings.Contains(lower, "hard") || strings.Contains(lower, "difficult") ||
		strings.Contains(lower, "exam") || strings.Contains(lower, "assignment"):
		return 7
	case strings.Contains(lower, "easy") || strings.Contains(lower, "quick") ||
		strings.Contains(lower, "light"):
		return 3
	default:
		return 5
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
