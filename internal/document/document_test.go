package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMarshalKeepsInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set("zeta", String("1"))
	m.Set("alpha", List{String("a"), Null{}})
	m.Set("mid", nil)
	m.Set("zeta", String("2")) // overwrite keeps position

	raw, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"2","alpha":["a",null],"mid":null}`, string(raw))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
}

func TestMarshalScalars(t *testing.T) {
	cases := []struct {
		name string
		in   Document
		want string
	}{
		{"absent", nil, "null"},
		{"null", Null{}, "null"},
		{"string with html", String("<b>&</b>"), `"<b>&</b>"`},
		{"quotes and unicode", String("diz \"oi\" ✓"), `"diz \"oi\" ✓"`},
		{"empty list", List{}, "[]"},
		{"nil list", List(nil), "[]"},
		{"empty map", NewMap(), "{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := Marshal(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(raw))
		})
	}
}

func TestParseJSON(t *testing.T) {
	t.Run("object order and nesting", func(t *testing.T) {
		doc, err := ParseJSON([]byte(`{"b":{"y":"1","x":[1,true,null,2.5]},"a":"s"}`))
		require.NoError(t, err)

		m, ok := doc.(*Map)
		require.True(t, ok)
		assert.Equal(t, []string{"b", "a"}, m.Keys())

		raw, err := Marshal(doc)
		require.NoError(t, err)
		assert.Equal(t, `{"b":{"y":"1","x":["1","true",null,"2.5"]},"a":"s"}`, string(raw))
	})

	t.Run("top level array", func(t *testing.T) {
		doc, err := ParseJSON([]byte(`[{"k":"v"}]`))
		require.NoError(t, err)
		list, ok := doc.(List)
		require.True(t, ok)
		require.Len(t, list, 1)
		inner := list[0].(*Map)
		v, _ := inner.Get("k")
		assert.Equal(t, String("v"), v)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"a":`))
		require.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseJSON([]byte(``))
		require.Error(t, err)
	})
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(String("")))
	assert.False(t, IsNull(List{}))
	assert.False(t, IsNull(NewMap()))
}

func TestMarshalIndent(t *testing.T) {
	m := NewMap()
	m.Set("a", String("b"))
	raw, err := MarshalIndent(m)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"b\"\n}", string(raw))
}
