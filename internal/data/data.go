// Package data loads the six input streams (item-word context, user-word
// context, ordered transaction baskets, view baskets, subscription rows,
// search rows), derives the cardinalities the parameter store is sized
// from, and expands ordered baskets into windowed training records.
package data

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
)

// ContextMap holds, for each key (an item or a user id), the list of word
// ids associated with it — the parsed form of an item-word or user-word
// file.
type ContextMap [][]int32

// LoadContext parses one key followed by its word ids per line. When
// checkGap is set (item-word files), every key from 0 up to the maximum key
// observed must appear on some line, i.e. the item index has no gaps.
func LoadContext(r io.Reader, checkGap bool) (ContextMap, error) {
	var cm ContextMap
	var seen []bool
	maxKey := -1
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		nums, err := parseInts(fields)
		if err != nil {
			return nil, errs.New(errs.InputShape, "data.LoadContext", err)
		}
		key := int(nums[0])
		if key < 0 {
			return nil, errs.New(errs.InputShape, "data.LoadContext", fmt.Errorf("negative key %d", key))
		}
		for len(cm) <= key {
			cm = append(cm, nil)
			seen = append(seen, false)
		}
		seen[key] = true
		cm[key] = append(cm[key], nums[1:]...)
		if key > maxKey {
			maxKey = key
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errs.New(errs.IO, "data.LoadContext", err)
	}
	if checkGap {
		for i, ok := range seen {
			if !ok {
				return nil, errs.New(errs.InputShape, "data.LoadContext", fmt.Errorf("context map has a gap: key %d missing, max key %d", i, maxKey))
			}
		}
	}
	return cm, nil
}

// WordCount returns a Laplace-smoothed (+1) occurrence count per word id
// referenced anywhere in cm, erroring if the referenced word ids have a gap
// between the lowest and highest id actually seen (rows below the lowest
// id are still allocated, since WO/UWO are indexed directly by word id
// with no remapping, but are never trained on).
func WordCount(cm ContextMap) ([]int64, error) {
	minWord, maxWord := -1, -1
	for _, words := range cm {
		for _, w := range words {
			if maxWord == -1 || int(w) > maxWord {
				maxWord = int(w)
			}
			if minWord == -1 || int(w) < minWord {
				minWord = int(w)
			}
		}
	}
	counts := make([]int64, maxWord+1)
	for i := range counts {
		counts[i] = 1
	}
	for _, words := range cm {
		for _, w := range words {
			counts[w]++
		}
	}
	for i := minWord; i <= maxWord; i++ {
		if counts[i] == 1 {
			return nil, errs.New(errs.InputShape, "data.WordCount", fmt.Errorf("word id %d is never referenced (gap)", i))
		}
	}
	return counts, nil
}

// Basket is one user's ordered item history, id-first: Basket[0] is the
// user id, Basket[1:] are item ids in time order.
type Basket []int32

// LoadOrderedBasket parses tab-separated rows: user id; comma-separated
// timestamps; comma-separated item ids. Timestamps and item ids must pair
// up 1:1; the result is sorted by timestamp ascending and the timestamp
// column dropped. Rows whose resulting basket (including the user id) has
// length <= 2 are skipped (transient, not fatal) and counted in errCount.
func LoadOrderedBasket(r io.Reader) ([]Basket, int, error) {
	var baskets []Basket
	errCount := 0
	total := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		total++
		cols := strings.Split(line, "\t")
		if len(cols) != 3 {
			return nil, 0, errs.New(errs.InputShape, "data.LoadOrderedBasket", fmt.Errorf("expected 3 tab-separated columns, got %d", len(cols)))
		}
		userFields := strings.Fields(cols[0])
		if len(userFields) != 1 {
			return nil, 0, errs.New(errs.InputShape, "data.LoadOrderedBasket", fmt.Errorf("user column must hold a single id"))
		}
		userID, err := strconv.Atoi(userFields[0])
		if err != nil || userID < 0 {
			return nil, 0, errs.New(errs.InputShape, "data.LoadOrderedBasket", fmt.Errorf("bad user id %q", userFields[0]))
		}
		tsFields := strings.Split(cols[1], ",")
		itemFields := strings.Split(cols[2], ",")
		if len(tsFields) != len(itemFields) {
			return nil, 0, errs.New(errs.InputShape, "data.LoadOrderedBasket", fmt.Errorf("timestamp/item count mismatch: %d vs %d", len(tsFields), len(itemFields)))
		}
		type pair struct {
			ts   int64
			item int32
		}
		pairs := make([]pair, len(tsFields))
		for i := range tsFields {
			ts, err := strconv.ParseInt(strings.TrimSpace(tsFields[i]), 10, 64)
			if err != nil {
				return nil, 0, errs.New(errs.InputShape, "data.LoadOrderedBasket", err)
			}
			item, err := strconv.ParseInt(strings.TrimSpace(itemFields[i]), 10, 32)
			if err != nil || item < 0 {
				return nil, 0, errs.New(errs.InputShape, "data.LoadOrderedBasket", fmt.Errorf("bad item id %q", itemFields[i]))
			}
			pairs[i] = pair{ts: ts, item: int32(item)}
		}
		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].ts < pairs[j].ts })

		b := make(Basket, 0, len(pairs)+1)
		b = append(b, int32(userID))
		for _, p := range pairs {
			b = append(b, p.item)
		}
		if len(b) <= 2 {
			errCount++
			continue
		}
		baskets = append(baskets, b)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, errs.New(errs.IO, "data.LoadOrderedBasket", err)
	}
	return baskets, errCount, nil
}

// TSVRow is a parsed subscription or search row: Row[0] is the item id,
// Row[1:] the remaining ids (subscriber user id for subscriptions, or
// search-query word ids for search — callers interpret by position).
type TSVRow []int32

// LoadTSV parses one tab-separated row per line into ints, requiring at
// least minLen entries (subscription rows: item+user+sub => minLen=3, with
// the exact count of 3 checked by engine.Open; search rows: item+>=1 word
// => minLen=2).
func LoadTSV(r io.Reader, minLen int) ([]TSVRow, error) {
	var rows []TSVRow
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		nums, err := parseInts(fields)
		if err != nil {
			return nil, errs.New(errs.InputShape, "data.LoadTSV", err)
		}
		if len(nums) < minLen {
			return nil, errs.New(errs.InputShape, "data.LoadTSV", fmt.Errorf("row has %d fields, need >= %d", len(nums), minLen))
		}
		rows = append(rows, TSVRow(nums))
	}
	if err := sc.Err(); err != nil {
		return nil, errs.New(errs.IO, "data.LoadTSV", err)
	}
	return rows, nil
}

func parseInts(fields []string) ([]int32, error) {
	out := make([]int32, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q: %w", f, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative value %d", n)
		}
		out = append(out, int32(n))
	}
	return out, nil
}

// ExpandWindowed turns one ordered basket (user id at position 0, items
// following) into windowed training records. For each item at position i
// (1-indexed into the basket, i.e. the 2nd through last item), the emitted
// record is [target=item_i, user, item_{max(1,i-ws)}..item_{i-1}] — i.e. up
// to ws preceding items plus the user id. Records include the target.
func ExpandWindowed(basket Basket, ws int, shuffleCtx func([]int32)) [][]int32 {
	if len(basket) < 3 {
		return nil
	}
	userID := basket[0]
	items := append([]int32(nil), basket[1:]...)
	if shuffleCtx != nil {
		shuffleCtx(items)
	}

	var out [][]int32
	for i := 1; i < len(items); i++ {
		k := i - ws
		if k < 0 {
			k = 0
		}
		rec := make([]int32, 0, 2+(i-k))
		rec = append(rec, items[i], userID)
		rec = append(rec, items[k:i]...)
		out = append(out, rec)
	}
	return out
}

// SizeStats summarizes the cardinalities the parameter store is sized
// from.
type SizeStats struct {
	Users           int
	Items           int
	Words           int
	UserWords       int
	SearchWordMax   int
}
