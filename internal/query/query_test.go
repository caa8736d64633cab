package query

import (
	"testing"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(action api.RuleAction, value string, keys ...string) api.Rule {
	return api.Rule{Keys: keys, Action: action, Value: value}
}

func TestParseProperty(t *testing.T) {
	cases := map[string]Property{
		"text":               {Kind: Text},
		"contentDescription": {Kind: ContentDescription},
		"className":          {Kind: ClassName},
		"extras.hint":        {Kind: Extra, Name: "hint"},
		"extras.a.b":         {Kind: Extra, Name: "a.b"},
		"extras.":            {Kind: Unknown},
		"viewId":             {Kind: Unknown},
		"Text":               {Kind: Unknown},
		"bundle.hint":        {Kind: Unknown},
	}
	for key, want := range cases {
		assert.Equal(t, want, ParseProperty(key), key)
	}
}

func TestValue(t *testing.T) {
	n := &tree.Element{Class: "Button", Label: "Send", Description: "send message", Extras: map[string]string{"hint": "type"}}

	v, ok := Value(n, ParseProperty("extras.hint"))
	assert.True(t, ok)
	assert.Equal(t, "type", v)

	_, ok = Value(n, ParseProperty("extras.missing"))
	assert.False(t, ok)

	_, ok = Value(n, ParseProperty("resourceId"))
	assert.False(t, ok)

	v, _ = Value(n, ParseProperty("className"))
	assert.Equal(t, "Button", v)
}

func TestRuleMatches(t *testing.T) {
	n := &tree.Element{Class: "android.widget.TextView", Label: "Hello World", Extras: map[string]string{"role": "Header"}}

	cases := []struct {
		name string
		rule api.Rule
		want bool
	}{
		{"equals ignores case", rule(api.Equals, "hello world", "text"), true},
		{"equals needs full match", rule(api.Equals, "hello", "text"), false},
		{"contains ignores case", rule(api.Contains, "WORLD", "text"), true},
		{"equals is full match on every key", rule(api.Equals, "textview", "contentDescription", "className", "text"), false},
		{"any key", rule(api.Contains, "textview", "contentDescription", "className"), true},
		{"extra", rule(api.Equals, "header", "extras.role"), true},
		{"absent is empty for equals", rule(api.Equals, "", "contentDescription"), true},
		{"unknown key is empty", rule(api.Equals, "", "viewId"), true},
		{"absent extra contains empty", rule(api.Contains, "", "extras.nope"), true},
		{"absent extra never contains text", rule(api.Contains, "x", "extras.nope"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RuleMatches(n, tc.rule))
		})
	}
}

func TestGroupMatches(t *testing.T) {
	n := &tree.Element{Class: "List", Description: "Chats"}
	g := api.QueryGroup{Name: "list", Rules: []api.Rule{
		rule(api.Equals, "list", "className"),
		rule(api.Contains, "chat", "text", "contentDescription"),
	}}
	assert.True(t, GroupMatches(n, g))

	g.Rules = append(g.Rules, rule(api.Equals, "x", "text"))
	assert.False(t, GroupMatches(n, g))

	assert.True(t, GroupMatches(n, api.QueryGroup{Name: "any"}))
}

// sample builds:
//
//	Frame
//	├── Toolbar "Chats"
//	├── List
//	│   ├── Row "a"
//	│   ├── <unobtainable>
//	│   └── Row "b"
//	└── Row "c"
func sample() *tree.Element {
	return &tree.Element{Class: "Frame", Children: []*tree.Element{
		{Class: "Toolbar", Label: "Chats"},
		{Class: "List", Children: []*tree.Element{
			{Class: "Row", Label: "a"},
			nil,
			{Class: "Row", Label: "b"},
		}},
		{Class: "Row", Label: "c"},
	}}
}

func TestFindNodes(t *testing.T) {
	root := sample()
	groups := api.QueryGroups{
		{Name: "rows", Rules: []api.Rule{rule(api.Equals, "row", "className")}},
		{Name: "labelled", Rules: []api.Rule{rule(api.Contains, "", "text")}},
		{Name: "missing", Rules: []api.Rule{rule(api.Equals, "Nope", "className")}},
	}

	found := FindNodes(root, groups)

	rows := found["rows"]
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].Text())
	assert.Equal(t, "b", rows[1].Text())
	assert.Equal(t, "c", rows[2].Text())

	// every node contains "", so this is the whole tree in pre-order
	var order []string
	for _, n := range found["labelled"] {
		order = append(order, n.ClassName())
	}
	assert.Equal(t, []string{"Frame", "Toolbar", "List", "Row", "Row", "Row"}, order)

	_, ok := found["missing"]
	assert.False(t, ok)
	assert.Nil(t, found.First("missing"))
	assert.Equal(t, "a", found.First("rows").Text())

	assert.Empty(t, FindNodes(nil, groups))
}

func TestValidate(t *testing.T) {
	root := sample()
	toolbar := api.QueryGroup{Name: "toolbar", Rules: []api.Rule{rule(api.Equals, "chats", "text")}}
	list := api.QueryGroup{Name: "list", Rules: []api.Rule{rule(api.Equals, "List", "className")}}
	missing := api.QueryGroup{Name: "missing", Rules: []api.Rule{rule(api.Equals, "Settings", "text")}}

	assert.True(t, Validate(root, api.QueryGroups{toolbar, list}))
	assert.False(t, Validate(root, api.QueryGroups{toolbar, missing}))
	assert.True(t, Validate(root, nil))
	assert.False(t, Validate(nil, api.QueryGroups{toolbar}))
	assert.False(t, Validate((*tree.Element)(nil), nil))
}
