package storage

import "strings"

// setBuilder collects "column = ?" assignments for a partial UPDATE.
type setBuilder struct {
	cols []string
	args []any
}

func (b *setBuilder) set(col string, v any) {
	b.cols = append(b.cols, col+" = ?")
	b.args = append(b.args, v)
}

func (b *setBuilder) empty() bool { return len(b.cols) == 0 }

func (b *setBuilder) clause() string {
	return strings.Join(b.cols, ", ")
}

// whereBuilder collects AND-ed predicates for a filtered SELECT.
type whereBuilder struct {
	preds []string
	args  []any
}

func (b *whereBuilder) add(pred string, args ...any) {
	b.preds = append(b.preds, pred)
	b.args = append(b.args, args...)
}

func (b *whereBuilder) clause() string {
	if len(b.preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.preds, " AND ")
}
