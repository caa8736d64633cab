package document

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ohler55/ojg/oj"
)

var errEmpty = errors.New("empty json document")

// ParseJSON decodes JSON into a Document, keeping object key order.
// Numbers and booleans become Strings holding their JSON text.
func ParseJSON(data []byte) (Document, error) {
	b := &builder{}
	if err := oj.Tokenize(data, b); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if len(b.stack) > 0 {
		return nil, errors.New("parse json: unterminated document")
	}
	if !b.done {
		return nil, errEmpty
	}
	return b.result, nil
}

type frame struct {
	m    *Map
	list List
	key  string
}

// builder implements oj.TokenHandler.
type builder struct {
	stack  []*frame
	result Document
	done   bool
}

func (b *builder) add(d Document) {
	if len(b.stack) == 0 {
		b.result = d
		b.done = true
		return
	}
	top := b.stack[len(b.stack)-1]
	if top.m != nil {
		top.m.Set(top.key, d)
		return
	}
	top.list = append(top.list, d)
}

func (b *builder) pop() *frame {
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return top
}

func (b *builder) Null()           { b.add(Null{}) }
func (b *builder) Bool(v bool)     { b.add(String(strconv.FormatBool(v))) }
func (b *builder) Int(v int64)     { b.add(String(strconv.FormatInt(v, 10))) }
func (b *builder) Float(v float64) { b.add(String(strconv.FormatFloat(v, 'g', -1, 64))) }
func (b *builder) Number(v string) { b.add(String(v)) }
func (b *builder) String(v string) { b.add(String(v)) }
func (b *builder) Key(k string)    { b.stack[len(b.stack)-1].key = k }
func (b *builder) ObjectStart()    { b.stack = append(b.stack, &frame{m: NewMap()}) }
func (b *builder) ObjectEnd()      { b.add(b.pop().m) }
func (b *builder) ArrayStart()     { b.stack = append(b.stack, &frame{list: List{}}) }
func (b *builder) ArrayEnd()       { b.add(b.pop().list) }

var _ oj.TokenHandler = (*builder)(nil)
