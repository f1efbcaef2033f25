package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Answer is the canonical form of a selected question answer. Delta is only
// set when the caller resolved the adjustment itself (agent re-evaluation).
type Answer struct {
	Key    string   `json:"key"`
	Label  string   `json:"label,omitempty"`
	Values []string `json:"values"`
	Delta  *Delta   `json:"delta,omitempty"`
}

// AnswerSet accepts either a key->selection object or a list of selections
// and normalizes both into []Answer at decode time.
type AnswerSet []Answer

// Keys returns the answer keys in order.
func (s AnswerSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, a := range s {
		keys = append(keys, a.Key)
	}
	return keys
}

// Lookup returns the answer for key.
func (s AnswerSet) Lookup(key string) (Answer, bool) {
	for _, a := range s {
		if a.Key == key {
			return a, true
		}
	}
	return Answer{}, false
}

func (s *AnswerSet) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = nil
		return nil
	}

	var answers []Answer
	switch trimmed[0] {
	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("answers: %w", err)
		}
		keys := make([]string, 0, len(raw))
		for key := range raw {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			answer, ok, err := answerFromValue(key, raw[key])
			if err != nil {
				return err
			}
			if ok {
				answers = append(answers, answer)
			}
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("answers: %w", err)
		}
		for i, item := range items {
			answer, ok, err := answerFromItem(item)
			if err != nil {
				return fmt.Errorf("answers[%d]: %w", i, err)
			}
			if ok {
				answers = append(answers, answer)
			}
		}
	default:
		return fmt.Errorf("answers must be an object or an array")
	}

	*s = dedupeAnswers(answers)
	return nil
}

type answerItem struct {
	Key         string          `json:"key"`
	QuestionKey string          `json:"questionKey"`
	QuestionID  string          `json:"questionId"`
	Label       string          `json:"label"`
	Value       json.RawMessage `json:"value"`
	Values      json.RawMessage `json:"values"`
	OptionKey   string          `json:"optionKey"`
	Delta       *Delta          `json:"delta"`
}

func answerFromItem(raw json.RawMessage) (Answer, bool, error) {
	var item answerItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Answer{}, false, fmt.Errorf("selection must be an object: %w", err)
	}
	key := firstNonEmpty(item.Key, item.QuestionKey, item.QuestionID)
	if key == "" {
		return Answer{}, false, fmt.Errorf("selection key is required")
	}
	values, err := selectionValues(item)
	if err != nil {
		return Answer{}, false, fmt.Errorf("%s: %w", key, err)
	}
	if len(values) == 0 && item.Delta == nil {
		return Answer{}, false, nil
	}
	return Answer{Key: key, Label: item.Label, Values: values, Delta: item.Delta}, true, nil
}

func answerFromValue(key string, raw json.RawMessage) (Answer, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Answer{}, false, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var item answerItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return Answer{}, false, fmt.Errorf("%s: %w", key, err)
		}
		values, err := selectionValues(item)
		if err != nil {
			return Answer{}, false, fmt.Errorf("%s: %w", key, err)
		}
		if item.OptionKey == "" && len(values) == 0 && item.Key != "" {
			values = []string{item.Key}
		}
		if len(values) == 0 && item.Delta == nil {
			return Answer{}, false, nil
		}
		return Answer{Key: key, Label: item.Label, Values: values, Delta: item.Delta}, true, nil
	}
	values, err := flattenValues(trimmed)
	if err != nil {
		return Answer{}, false, fmt.Errorf("%s: %w", key, err)
	}
	if len(values) == 0 {
		return Answer{}, false, nil
	}
	return Answer{Key: key, Values: values}, true, nil
}

func selectionValues(item answerItem) ([]string, error) {
	if len(bytes.TrimSpace(item.Values)) > 0 {
		return flattenValues(item.Values)
	}
	if len(bytes.TrimSpace(item.Value)) > 0 {
		return flattenValues(item.Value)
	}
	if item.OptionKey != "" {
		return []string{item.OptionKey}, nil
	}
	return nil, nil
}

// flattenValues turns a scalar or list into a list of strings. Scalars become
// single-element lists.
func flattenValues(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		var out []string
		for _, item := range items {
			vals, err := flattenValues(item)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}
		return out, nil
	}
	if trimmed[0] == '{' {
		var item answerItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, err
		}
		if v := firstNonEmpty(item.OptionKey, item.Key); v != "" {
			return []string{v}, nil
		}
		return selectionValues(item)
	}
	value, err := scalarString(trimmed)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return []string{value}, nil
}

func scalarString(raw json.RawMessage) (string, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", err
	}
	switch v := decoded.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("unsupported selection value %s", string(raw))
	}
}

// dedupeAnswers keeps the last occurrence of each key at its first position.
func dedupeAnswers(answers []Answer) AnswerSet {
	if len(answers) == 0 {
		return nil
	}
	index := make(map[string]int, len(answers))
	out := make(AnswerSet, 0, len(answers))
	for _, a := range answers {
		if i, ok := index[a.Key]; ok {
			out[i] = a
			continue
		}
		index[a.Key] = len(out)
		out = append(out, a)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
