package types

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/resellr-backend/pkg/enums"
	"github.com/stretchr/testify/require"
)

func TestAnswerSetAcceptsMapOfScalars(t *testing.T) {
	var set AnswerSet
	require.NoError(t, json.Unmarshal([]byte(`{"screen":"cracked","power":true,"age":2}`), &set))

	require.Equal(t, AnswerSet{
		{Key: "age", Values: []string{"2"}},
		{Key: "power", Values: []string{"true"}},
		{Key: "screen", Values: []string{"cracked"}},
	}, set)
}

func TestAnswerSetAcceptsMapOfLists(t *testing.T) {
	var set AnswerSet
	require.NoError(t, json.Unmarshal([]byte(`{"issues":["speaker","mic"],"empty":[]}`), &set))

	require.Len(t, set, 1)
	require.Equal(t, "issues", set[0].Key)
	require.Equal(t, []string{"speaker", "mic"}, set[0].Values)
}

func TestAnswerSetAcceptsMapOfObjects(t *testing.T) {
	var set AnswerSet
	raw := `{"q1":{"value":"good","delta":{"type":"percent","sign":"-","value":5}},"q2":{"optionKey":"yes"},"q3":{"key":"no"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &set))

	require.Len(t, set, 3)
	q1, ok := set.Lookup("q1")
	require.True(t, ok)
	require.Equal(t, []string{"good"}, q1.Values)
	require.NotNil(t, q1.Delta)
	require.Equal(t, enums.DeltaTypePercent, q1.Delta.Type)
	require.Equal(t, -5.0, q1.Delta.Signed())

	q2, _ := set.Lookup("q2")
	require.Equal(t, []string{"yes"}, q2.Values)
	q3, _ := set.Lookup("q3")
	require.Equal(t, []string{"no"}, q3.Values)
}

func TestAnswerSetAcceptsArrayForms(t *testing.T) {
	var set AnswerSet
	raw := `[
		{"questionKey":"screen","value":"cracked"},
		{"questionId":"6f1c","values":["a","b"],"label":"Body"},
		{"key":"battery","optionKey":"weak"},
		{"key":"screen","value":"scratched"},
		{"key":"skip"}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &set))

	require.Equal(t, []string{"screen", "6f1c", "battery"}, set.Keys())
	screen, _ := set.Lookup("screen")
	require.Equal(t, []string{"scratched"}, screen.Values, "later selections replace earlier ones")
	body, _ := set.Lookup("6f1c")
	require.Equal(t, "Body", body.Label)
}

func TestAnswerSetDeltaOnlySelectionIsKept(t *testing.T) {
	var set AnswerSet
	require.NoError(t, json.Unmarshal([]byte(`[{"key":"q","delta":{"type":"abs","sign":"+","value":300}}]`), &set))
	require.Len(t, set, 1)
	require.Equal(t, 300.0, set[0].Delta.Signed())
}

func TestAnswerSetRejectsGarbage(t *testing.T) {
	var set AnswerSet
	require.Error(t, json.Unmarshal([]byte(`"screen"`), &set))
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &set))
	require.Error(t, json.Unmarshal([]byte(`[{"value":"x"}]`), &set))
}

func TestAnswerSetNull(t *testing.T) {
	set := AnswerSet{{Key: "x"}}
	require.NoError(t, json.Unmarshal([]byte(`null`), &set))
	require.Nil(t, set)
}

func TestAnswerSetRoundTripsCanonicalForm(t *testing.T) {
	in := AnswerSet{{Key: "screen", Values: []string{"cracked"}}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out AnswerSet
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, in, out)
}

func TestQuestionOptionMatches(t *testing.T) {
	opt := QuestionOption{Key: "cracked", Label: "Cracked screen", Value: "c1"}
	require.True(t, opt.Matches("cracked"))
	require.True(t, opt.Matches("c1"))
	require.True(t, opt.Matches("Cracked screen"))
	require.False(t, opt.Matches(""))
	require.False(t, opt.Matches("fine"))
}
