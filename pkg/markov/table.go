package markov

import (
	"fmt"
	"strconv"
)

// TransitionTable holds every (order+1)-wide window of the token stream whose
// last two entries are vocabulary ids. Earlier context entries may still be
// Sentinel. Only the last two columns are checked; a window with an unknown
// token further back is kept and simply never matches at the longer back-off
// levels.
//
// Next to the rows it keeps one index per back-off level, keyed by the
// trailing context suffix, so a lookup costs one map access instead of a scan.
type TransitionTable struct {
	order int
	rows  []int // row-major, order+1 ints per row
	// levels[i-1] maps the key of a length-i context suffix to the targets of
	// every row ending in that suffix, in row order.
	levels []map[string][]int
}

// BuildTransitionTable slides a window of order+1 tokens across stream.
func BuildTransitionTable(stream []int, order int) (*TransitionTable, error) {
	if order <= 0 {
		return nil, &ConfigError{Field: "order", Value: order, Reason: "must be positive"}
	}
	width := order + 1
	if len(stream) < width {
		return nil, &ConfigError{
			Field:  "order",
			Value:  order,
			Reason: fmt.Sprintf("needs at least %d tokens, corpus has %d", width, len(stream)),
		}
	}

	t := &TransitionTable{
		order:  order,
		levels: make([]map[string][]int, order),
	}
	for i := range t.levels {
		t.levels[i] = make(map[string][]int)
	}

	var keyBuf []byte
	for start := 0; start+width <= len(stream); start++ {
		window := stream[start : start+width]
		target := window[order]
		if target == Sentinel || window[order-1] == Sentinel {
			continue
		}
		t.rows = append(t.rows, window...)

		for i := 1; i <= order; i++ {
			suffix := window[order-i : order]
			if suffix[0] == Sentinel {
				// Every longer suffix contains this position too.
				break
			}
			keyBuf = appendContextKey(keyBuf[:0], suffix)
			key := string(keyBuf)
			t.levels[i-1][key] = append(t.levels[i-1][key], target)
		}
	}

	return t, nil
}

// appendContextKey renders ids as a space separated key, e.g. "12 4 873".
func appendContextKey(dst []byte, ids []int) []byte {
	for j, id := range ids {
		if j > 0 {
			dst = append(dst, ' ')
		}
		dst = strconv.AppendInt(dst, int64(id), 10)
	}
	return dst
}

// Order returns the context width of the table.
func (t *TransitionTable) Order() int {
	return t.order
}

// Len returns the number of rows kept after filtering.
func (t *TransitionTable) Len() int {
	return len(t.rows) / (t.order + 1)
}

// Row returns row i as order context ids followed by the target id.
// The returned slice must not be modified.
func (t *TransitionTable) Row(i int) []int {
	width := t.order + 1
	return t.rows[i*width : (i+1)*width]
}

// Targets returns the target of every row whose trailing len(context)
// context columns equal context exactly. It returns nil when nothing matches
// or when len(context) is outside [1, Order()]. The returned slice must not be
// modified.
func (t *TransitionTable) Targets(context []int) []int {
	if len(context) == 0 || len(context) > t.order {
		return nil
	}
	key := string(appendContextKey(make([]byte, 0, 8*len(context)), context))
	return t.levels[len(context)-1][key]
}

// Contexts returns the number of distinct context suffixes of the given
// length that have at least one row.
func (t *TransitionTable) Contexts(length int) int {
	if length <= 0 || length > t.order {
		return 0
	}
	return len(t.levels[length-1])
}
