package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// CategorySource supplies the effective category set.
type CategorySource interface {
	Categories(ctx context.Context) ([]string, error)
}

// Assistant runs the two single-shot prompt flows.
type Assistant struct {
	gen        Generator
	categories CategorySource
	logger     *log.Logger
}

func NewAssistant(gen Generator, categories CategorySource, logger *log.Logger) *Assistant {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Assistant{gen: gen, categories: categories, logger: logger.WithComponent(log.ComponentAI)}
}

// Categorize asks the model for a category label for description. A label
// matching the category set (ignoring case) comes back in its canonical
// spelling; anything else is returned trimmed, as the model wrote it.
func (a *Assistant) Categorize(ctx context.Context, description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", core.ErrEmptyDescription
	}
	cats, err := a.categories.Categories(ctx)
	if err != nil {
		return "", fmt.Errorf("load categories: %w", err)
	}

	prompt := fmt.Sprintf(`You categorize personal expenses.
Pick the single best category for the expense below from this list: %s.
Answer with the category name only, no punctuation or explanation.

Expense: %s`, strings.Join(cats, ", "), description)

	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	label := cleanLabel(out)
	if label == "" {
		return "", errors.New("model returned an empty category")
	}
	if canonical, ok := core.CanonicalCategory(cats, label); ok {
		label = canonical
	}
	a.logger.DebugContext(ctx, "Categorized expense", log.FieldCategory, label, log.FieldOperation, log.OpCategorize)
	return label, nil
}

// Tips asks for short advice on the given expenses.
func (a *Assistant) Tips(ctx context.Context, expenses []core.Expense) (string, error) {
	if len(expenses) == 0 {
		return "", errors.New("no expenses to analyse")
	}
	prompt := fmt.Sprintf(`Here are my recent expenses, one per line as "category: amount - description":
%s

Give me three short, practical tips to reduce my spending.`, TipsInput(expenses))
	return a.gen.Generate(ctx, prompt)
}

// TipsInput renders expenses as newline-joined "category: amount - description" lines.
func TipsInput(expenses []core.Expense) string {
	lines := make([]string, len(expenses))
	for i, e := range expenses {
		lines[i] = fmt.Sprintf("%s: %s - %s", e.Category, core.FormatAmount(e.Amount), e.Description)
	}
	return strings.Join(lines, "\n")
}

// cleanLabel keeps the first line and strips quotes and trailing punctuation.
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'`*. ")
	return strings.TrimSpace(s)
}
