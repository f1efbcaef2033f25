package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/resellr-backend/internal/pricing"
	"github.com/angelmondragon/resellr-backend/pkg/db/models"
	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/angelmondragon/resellr-backend/pkg/logger"
	"github.com/angelmondragon/resellr-backend/pkg/types"
)

// Selections are the customer's choices as stored on an offer session. Only
// keys are kept; deltas always come from the catalog.
type Selections struct {
	Answers     types.AnswerSet
	Defects     []string
	Accessories []string
}

type catalogReader interface {
	ListQuestions(ctx context.Context, categoryID uuid.UUID) ([]models.SellQuestion, error)
	ListDefects(ctx context.Context, categoryID uuid.UUID) ([]models.SellDefect, error)
	ListAccessories(ctx context.Context, categoryID uuid.UUID) ([]models.SellAccessory, error)
}

// Resolver turns selection keys into priced adjustments.
type Resolver struct {
	reader catalogReader
	logg   *logger.Logger
}

func NewResolver(reader catalogReader, logg *logger.Logger) (*Resolver, error) {
	if reader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{reader: reader, logg: logg}, nil
}

// Resolve looks every selection up in the category catalog. Keys that are
// unknown, inactive or carry no delta are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, categoryID uuid.UUID, sel Selections) ([]pricing.Adjustment, error) {
	questions, err := r.reader.ListQuestions(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defects, err := r.reader.ListDefects(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list defects: %w", err)
	}
	accessories, err := r.reader.ListAccessories(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list accessories: %w", err)
	}

	adjustments := make([]pricing.Adjustment, 0, len(sel.Answers)+len(sel.Defects)+len(sel.Accessories))
	adjustments = append(adjustments, r.resolveAnswers(ctx, questions, sel.Answers)...)

	defectByKey := make(map[string]models.SellDefect, len(defects))
	for _, d := range defects {
		defectByKey[d.Key] = d
	}
	for _, key := range dedupe(sel.Defects) {
		defect, ok := defectByKey[key]
		if !ok {
			r.skip(ctx, "defect", key)
			continue
		}
		adjustments = append(adjustments, pricing.Adjustment{Label: defect.Title, Type: enums.BreakdownDefect, Delta: defect.Delta})
	}

	accessoryByKey := make(map[string]models.SellAccessory, len(accessories))
	for _, a := range accessories {
		accessoryByKey[a.Key] = a
	}
	for _, key := range dedupe(sel.Accessories) {
		accessory, ok := accessoryByKey[key]
		if !ok {
			r.skip(ctx, "accessory", key)
			continue
		}
		adjustments = append(adjustments, pricing.Adjustment{Label: accessory.Title, Type: enums.BreakdownAccessory, Delta: accessory.Delta})
	}

	return adjustments, nil
}

func (r *Resolver) resolveAnswers(ctx context.Context, questions []models.SellQuestion, answers types.AnswerSet) []pricing.Adjustment {
	var out []pricing.Adjustment
	matched := make(map[string]struct{}, len(answers))

	for _, q := range questions {
		answer, ok := answers.Lookup(q.Key)
		if !ok {
			answer, ok = answers.Lookup(q.ID.String())
		}
		if !ok {
			continue
		}
		matched[answer.Key] = struct{}{}

		values := answer.Values
		if !q.MultiSelect && len(values) > 1 {
			values = values[:1]
		}
		for _, value := range values {
			option, found := findOption(q.Options, value)
			if !found || option.Delta == nil {
				r.skip(ctx, "answer", q.Key+"="+value)
				continue
			}
			out = append(out, pricing.Adjustment{Label: q.Title, Type: enums.BreakdownQuestion, Delta: *option.Delta})
		}
	}

	for _, answer := range answers {
		if _, ok := matched[answer.Key]; !ok {
			r.skip(ctx, "question", answer.Key)
		}
	}
	return out
}

func (r *Resolver) skip(ctx context.Context, kind, key string) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"selection_kind": kind,
		"selection_key":  key,
	})
	r.logg.Warn(ctx, "catalog.selection_unresolved")
}

func findOption(options types.QuestionOptions, value string) (types.QuestionOption, bool) {
	for _, opt := range options {
		if opt.Matches(value) {
			return opt, true
		}
	}
	return types.QuestionOption{}, false
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// InlineAdjustments converts agent-observed answers and items, whose deltas
// were resolved by the caller, into adjustments for the same evaluator the
// online flow uses. Entries without a delta are dropped.
func InlineAdjustments(answers types.AnswerSet, defects, accessories []types.InlineItem) []pricing.Adjustment {
	out := make([]pricing.Adjustment, 0, len(answers)+len(defects)+len(accessories))
	for _, a := range answers {
		if a.Delta == nil {
			continue
		}
		out = append(out, pricing.Adjustment{Label: firstNonEmpty(a.Label, a.Key), Type: enums.BreakdownQuestion, Delta: *a.Delta})
	}
	for _, d := range defects {
		out = append(out, pricing.Adjustment{Label: firstNonEmpty(d.Title, d.Key), Type: enums.BreakdownDefect, Delta: d.Delta})
	}
	for _, a := range accessories {
		out = append(out, pricing.Adjustment{Label: firstNonEmpty(a.Title, a.Key), Type: enums.BreakdownAccessory, Delta: a.Delta})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
