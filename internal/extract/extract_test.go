package extract

import (
	"testing"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/query"
	"github.com/agentic-research/lina/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) document.Document {
	t.Helper()
	doc, err := document.ParseJSON([]byte(raw))
	require.NoError(t, err)
	return doc
}

func mustSpec(t *testing.T, raw string) *api.ExtractionSpec {
	t.Helper()
	spec, err := api.ParseExtraction([]byte(raw), api.FormatJSON)
	require.NoError(t, err)
	return spec
}

func jsonOf(t *testing.T, d document.Document) string {
	t.Helper()
	raw, err := document.Marshal(d)
	require.NoError(t, err)
	return string(raw)
}

func step(key string, action api.StepAction) api.PathStep {
	return api.PathStep{Key: key, Action: action}
}

var (
	get   = api.StepAction{Kind: api.Get}
	first = api.StepAction{Kind: api.First}
	last  = api.StepAction{Kind: api.Last}
)

func itemAt(i int) api.StepAction { return api.StepAction{Kind: api.ItemAt, Index: i} }

const rows = `{"items": [{"x": "1", "n": "A"}, {"x": "2", "n": "B"}, {"x": "1", "n": "C"}], "title": "T", "nothing": null}`

func TestResolveStepItemAt(t *testing.T) {
	doc := mustParse(t, rows)
	for i, want := range []string{"A", "B", "C"} {
		got := ResolvePath(doc, api.PathExpression{step("items", itemAt(i)), step("n", get)})
		assert.Equal(t, document.String(want), got)
	}
	assert.Nil(t, ResolveStep(doc, step("items", itemAt(3))))
}

func TestResolveStepWhere(t *testing.T) {
	doc := mustParse(t, rows)
	where := &api.Where{Key: "x", Value: "1"}

	a := ResolveStep(doc, api.PathStep{Key: "items", Action: first, Where: where})
	c := ResolveStep(doc, api.PathStep{Key: "items", Action: last, Where: where})
	assert.JSONEq(t, `{"x":"1","n":"A"}`, jsonOf(t, a))
	assert.JSONEq(t, `{"x":"1","n":"C"}`, jsonOf(t, c))

	b := ResolveStep(doc, api.PathStep{Key: "items", Action: last, Where: &api.Where{Key: "N", Value: "b"}})
	assert.Nil(t, b, "where key is case-sensitive")
	b = ResolveStep(doc, api.PathStep{Key: "items", Action: first, Where: &api.Where{Key: "n", Value: "b"}})
	assert.JSONEq(t, `{"x":"2","n":"B"}`, jsonOf(t, b))

	assert.Nil(t, ResolveStep(doc, api.PathStep{Key: "items", Action: first, Where: &api.Where{Key: "x", Value: "9"}}))
}

func TestResolveStepWithoutWhere(t *testing.T) {
	doc := mustParse(t, `{"children": ["skip", {"n": "A"}, {"n": "B"}, "tail"]}`)
	assert.JSONEq(t, `{"n":"A"}`, jsonOf(t, ResolveStep(doc, step("children", first))))
	assert.JSONEq(t, `{"n":"B"}`, jsonOf(t, ResolveStep(doc, step("children", last))))
	assert.Equal(t, document.String("skip"), ResolveStep(doc, step("children", itemAt(0))))
}

func TestResolveStepWhereOnMissingField(t *testing.T) {
	doc := mustParse(t, `{"children": [{"n": "A"}, {"k": null, "n": "B"}]}`)
	got := ResolveStep(doc, api.PathStep{Key: "children", Action: first, Where: &api.Where{Key: "k", Value: ""}})
	assert.JSONEq(t, `{"n":"A"}`, jsonOf(t, got))
}

func TestResolveStepMisses(t *testing.T) {
	doc := mustParse(t, rows)
	cases := []struct {
		name string
		cur  document.Document
		step api.PathStep
	}{
		{"missing key", doc, step("absent", get)},
		{"null value", doc, step("nothing", get)},
		{"get on list", doc, step("items", get)},
		{"first on scalar", doc, step("title", first)},
		{"item on scalar", doc, step("title", itemAt(0))},
		{"lookup in list", document.List{document.String("a")}, step("a", get)},
		{"lookup in string", document.String("s"), step("s", get)},
		{"lookup in nil", nil, step("s", get)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, ResolveStep(tc.cur, tc.step))
		})
	}
	assert.Equal(t, document.String("T"), ResolveStep(doc, step("title", get)))
}

func TestResolvePath(t *testing.T) {
	doc := mustParse(t, `{"a": {"b": {"c": "deep"}}}`)
	assert.Equal(t, document.String("deep"), ResolvePath(doc, api.PathExpression{step("a", get), step("b", get), step("c", get)}))
	assert.Nil(t, ResolvePath(doc, api.PathExpression{step("a", get), step("x", get), step("c", get)}))
	assert.Same(t, doc, ResolvePath(doc, nil))
}

func TestResolveAlternatives(t *testing.T) {
	doc := mustParse(t, `{"y": "v", "z": "w"}`)
	p1 := api.PathExpression{step("x", get)}
	p2 := api.PathExpression{step("y", get)}
	p3 := api.PathExpression{step("z", get)}

	assert.Equal(t, document.String("v"), ResolveAlternatives(doc, []api.PathExpression{p1, p2, p3}))
	assert.Equal(t, document.String("w"), ResolveAlternatives(doc, []api.PathExpression{p3, p2}))
	assert.Nil(t, ResolveAlternatives(doc, []api.PathExpression{p1}))
	assert.Nil(t, ResolveAlternatives(doc, nil))
}

func TestExtractNestedGrouping(t *testing.T) {
	doc := mustParse(t, `{"y": "5", "name": "n", "s": "null"}`)

	t.Run("null members omitted", func(t *testing.T) {
		spec := mustSpec(t, `{"a.x": [[{"key": "x", "action": "get"}]], "a.y": [[{"key": "y", "action": "get"}]]}`)
		assert.Equal(t, `{"a":{"y":"5"}}`, jsonOf(t, Extract(doc, spec)))
	})

	t.Run("all null collapses to null", func(t *testing.T) {
		spec := mustSpec(t, `{"a.x": [[{"key": "x", "action": "get"}]], "a.y": [[{"key": "q", "action": "get"}]]}`)
		assert.Equal(t, `{"a":null}`, jsonOf(t, Extract(doc, spec)))
	})

	t.Run("plain key keeps null", func(t *testing.T) {
		spec := mustSpec(t, `{"name": [[{"key": "name", "action": "get"}]], "missing": [[{"key": "q", "action": "get"}]]}`)
		assert.Equal(t, `{"name":"n","missing":null}`, jsonOf(t, Extract(doc, spec)))
	})

	t.Run("single dotted key still nests", func(t *testing.T) {
		spec := mustSpec(t, `{"a.y": [[{"key": "y", "action": "get"}]]}`)
		assert.Equal(t, `{"a":{"y":"5"}}`, jsonOf(t, Extract(doc, spec)))
	})

	t.Run("suffix split at first dot", func(t *testing.T) {
		spec := mustSpec(t, `{"a.b.c": [[{"key": "y", "action": "get"}]]}`)
		assert.Equal(t, `{"a":{"b.c":"5"}}`, jsonOf(t, Extract(doc, spec)))
	})

	t.Run("literal null string is kept", func(t *testing.T) {
		spec := mustSpec(t, `{"a.s": [[{"key": "s", "action": "get"}]]}`)
		assert.Equal(t, `{"a":{"s":"null"}}`, jsonOf(t, Extract(doc, spec)))
	})

	t.Run("groups ordered by first appearance", func(t *testing.T) {
		spec := mustSpec(t, `{
			"z.one": [[{"key": "y", "action": "get"}]],
			"m":     [[{"key": "name", "action": "get"}]],
			"z.two": [[{"key": "name", "action": "get"}]]
		}`)
		assert.Equal(t, `{"z":{"one":"5","two":"n"},"m":"n"}`, jsonOf(t, Extract(doc, spec)))
	})

	t.Run("nil spec", func(t *testing.T) {
		assert.Equal(t, `{}`, jsonOf(t, Extract(doc, nil)))
	})
}

func TestExtractDeterministic(t *testing.T) {
	doc := mustParse(t, rows)
	spec := mustSpec(t, `[{
		"t": [[{"key": "title", "action": "get"}]],
		"row.first": [[{"key": "items", "action": "first", "where": "x", "value": "1"}, {"key": "n", "action": "get"}]],
		"row.last": [[{"key": "items", "action": "last", "where": "x", "value": "1"}, {"key": "n", "action": "get"}]]
	}]`)
	want := `{"t":"T","row":{"first":"A","last":"C"}}`
	for i := 0; i < 3; i++ {
		assert.Equal(t, want, jsonOf(t, Extract(doc, spec)))
	}
}

func TestEndToEnd(t *testing.T) {
	root := &tree.Element{Class: "Root", Children: []*tree.Element{
		{Class: "List", Children: []*tree.Element{
			{Label: "a"},
			{Label: "b"},
			{Label: "c"},
		}},
	}}
	groups, err := api.ParseQueryGroups([]byte(`[{"name": "list", "queries": [{"keys": ["className"], "action": "equals", "value": "List"}]}]`), api.FormatJSON)
	require.NoError(t, err)

	found := query.FindNodes(root, groups)
	require.Len(t, found["list"], 1)
	assert.Same(t, root.Children[0], found["list"][0])
	assert.True(t, query.Validate(root, groups))

	doc := document.Serialize(found["list"][0])
	assert.Equal(t, `{"className":"List","children":[{"content":"a"},{"content":"b"},{"content":"c"}]}`, jsonOf(t, doc))

	spec := mustSpec(t, `[{"first": [[{"key": "children", "action": "item_0"}, {"key": "content", "action": "get"}]]}]`)
	assert.Equal(t, `{"first":"a"}`, jsonOf(t, Extract(doc, spec)))
}
