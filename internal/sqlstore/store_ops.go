package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/oxhq/mesh/expr"
	"github.com/oxhq/mesh/model"
	"github.com/oxhq/mesh/query"
	"github.com/oxhq/mesh/store"
	"github.com/oxhq/mesh/value"
)

// Retrieve implements store.Store.
func (s *Store) Retrieve(ctx context.Context, m value.Value) (value.Value, bool, error) {
	return retrieve(s.db.WithContext(ctx), m)
}

// Insert implements store.Store.
func (s *Store) Insert(ctx context.Context, v value.Value) error {
	return insert(s.db.WithContext(ctx), v)
}

// Remove implements store.Store.
func (s *Store) Remove(ctx context.Context, v value.Value) error {
	return remove(s.db.WithContext(ctx), v)
}

// Execute implements store.Store. Only one Execute runs at a time, mirroring
// the teacher's TransactionManager, which rejects a second BeginTransaction
// while one is already open rather than letting them interleave.
func (s *Store) Execute(ctx context.Context, fn func(store.Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txn{db: tx})
	})
}

type txn struct{ db *gorm.DB }

func (t *txn) Retrieve(ctx context.Context, m value.Value) (value.Value, bool, error) {
	return retrieve(t.db.WithContext(ctx), m)
}

func (t *txn) Insert(ctx context.Context, v value.Value) error {
	return insert(t.db.WithContext(ctx), v)
}

func (t *txn) Remove(ctx context.Context, v value.Value) error {
	return remove(t.db.WithContext(ctx), v)
}

func insert(db *gorm.DB, v value.Value) error {
	id, ok := v.ID()
	if !ok {
		return store.NewError(store.Underspecified, `insert requires an "@id" field`)
	}
	data, err := marshalValue(v)
	if err != nil {
		return store.NewError(store.Unsupported, fmt.Sprintf("value cannot be persisted: %v", err))
	}
	rec := record{ID: id, Data: datatypes.JSON(data)}
	if err := db.Save(&rec).Error; err != nil {
		return asStoreError(err)
	}
	return nil
}

func remove(db *gorm.DB, v value.Value) error {
	id, ok := v.ID()
	if !ok {
		return store.NewError(store.Underspecified, `remove requires an "@id" field`)
	}
	res := db.Delete(&record{}, "id = ?", id)
	if res.Error != nil {
		return asStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.NewError(store.NotFound, fmt.Sprintf("no record with id %q", id))
	}
	return nil
}

// retrieve resolves model against the database: an identified object is
// looked up by "@id" and populated onto the model; a Query is executed and
// projected; an object without an identity or an array has its fields or
// elements resolved recursively, per spec.md §4.G's "resolves every embedded
// Query within the model" contract.
func retrieve(db *gorm.DB, m value.Value) (value.Value, bool, error) {
	switch m.Kind() {
	case value.Query:
		return retrieveQuery(db, m)
	case value.Array:
		elems, _ := m.Array()
		out := make([]value.Value, len(elems))
		for i, e := range elems {
			rv, _, err := retrieve(db, e)
			if err != nil {
				return value.Value{}, false, err
			}
			out[i] = rv
		}
		return value.ArrayValue(out...), true, nil
	case value.Object:
		if id, ok := m.ID(); ok {
			return retrieveByID(db, m, id)
		}
		return retrieveNestedFields(db, m)
	default:
		return m, true, nil
	}
}

func retrieveByID(db *gorm.DB, m value.Value, id string) (value.Value, bool, error) {
	var rec record
	err := db.Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return value.Value{}, false, nil
	}
	if err != nil {
		return value.Value{}, false, asStoreError(err)
	}
	stored, err := unmarshalValue(rec.Data)
	if err != nil {
		return value.Value{}, false, store.WrapError(store.Backend, "stored record is corrupt", err)
	}
	merged, err := model.Populate(m, stored)
	if err != nil {
		return value.Value{}, false, store.WrapError(store.Backend, "populate stored record onto model", err)
	}
	return merged, true, nil
}

func retrieveNestedFields(db *gorm.DB, m value.Value) (value.Value, bool, error) {
	o, ok := m.Obj()
	if !ok {
		return m, true, nil
	}
	fields := make([]value.Field, 0, o.Len())
	for _, f := range o.Fields() {
		switch f.Value.Kind() {
		case value.Query, value.Object, value.Array:
			rv, _, err := retrieve(db, f.Value)
			if err != nil {
				return value.Value{}, false, err
			}
			fields = append(fields, value.Field{Name: f.Name, Value: rv})
		default:
			fields = append(fields, f)
		}
	}
	next, err := value.NewObj(fields...)
	if err != nil {
		return value.Value{}, false, store.WrapError(store.Backend, "rebuild resolved model", err)
	}
	return value.ObjectValue(next), true, nil
}

// retrieveQuery scans every persisted record, keeps those matching q's
// non-computed clauses, sorts and paginates them, then either projects a
// Specs' probes into a Table or populates each match onto q's plain model
// into an Array. Computed (transform-pipelined) clauses are not evaluated as
// row filters by this reference driver — see DESIGN.md.
func retrieveQuery(db *gorm.DB, qv value.Value) (value.Value, bool, error) {
	embedded, ok := qv.Embedded()
	if !ok {
		return value.Value{}, false, store.NewError(store.Invalid, "query value carries no embedded query")
	}
	q, ok := embedded.(*query.Query)
	if !ok {
		return value.Value{}, false, store.NewError(store.Invalid, "embedded value is not a *query.Query")
	}

	var recs []record
	if err := db.Find(&recs).Error; err != nil {
		return value.Value{}, false, asStoreError(err)
	}

	matches := make([]value.Value, 0, len(recs))
	for _, rec := range recs {
		v, err := unmarshalValue(rec.Data)
		if err != nil {
			continue
		}
		if matchesClauses(v, q.Clauses()) {
			matches = append(matches, v)
		}
	}

	sortMatches(matches, q.Clauses())
	matches = paginate(matches, q.Offset(), q.Limit())

	if specsEmbedded, ok := q.Model().Embedded(); ok {
		if specs, ok := specsEmbedded.(*query.Specs); ok {
			tab, err := project(specs, matches)
			if err != nil {
				return value.Value{}, false, store.WrapError(store.Backend, "project specs", err)
			}
			return value.TableValue(tab), true, nil
		}
	}

	out := make([]value.Value, len(matches))
	for i, rec := range matches {
		populated, err := model.Populate(q.Model(), rec)
		if err != nil {
			return value.Value{}, false, store.WrapError(store.Backend, "populate matched record onto model", err)
		}
		out[i] = populated
	}
	return value.ArrayValue(out...), true, nil
}

func matchesClauses(v value.Value, clauses []query.Clause) bool {
	for _, c := range clauses {
		if c.Expr.IsComputed() {
			continue
		}
		fv, present := fieldAt(v, c.Expr.Path())
		if !matchesCriterion(fv, present, c.Criterion) {
			return false
		}
	}
	return true
}

func fieldAt(v value.Value, path []string) (value.Value, bool) {
	cur := v
	for _, step := range path {
		o, ok := cur.Obj()
		if !ok {
			return value.Value{}, false
		}
		fv, ok := o.Get(step)
		if !ok {
			return value.Value{}, false
		}
		cur = fv
	}
	return cur, true
}

func matchesCriterion(fv value.Value, present bool, c query.Criterion) bool {
	if any, ok := c.Any(); ok {
		match := false
		if len(any) == 0 {
			match = present
		} else {
			for _, alt := range any {
				if alt.IsNil() && !present {
					match = true
					break
				}
				if present && value.Equal(fv, alt) {
					match = true
					break
				}
			}
		}
		if !match {
			return false
		}
	}
	if !present {
		return true
	}
	if bound, ok := c.Less(); ok {
		if cmp, err := value.Compare(fv, bound); err != nil || cmp >= 0 {
			return false
		}
	}
	if bound, ok := c.LessEqual(); ok {
		if cmp, err := value.Compare(fv, bound); err != nil || cmp > 0 {
			return false
		}
	}
	if bound, ok := c.Greater(); ok {
		if cmp, err := value.Compare(fv, bound); err != nil || cmp <= 0 {
			return false
		}
	}
	if bound, ok := c.GreaterEqual(); ok {
		if cmp, err := value.Compare(fv, bound); err != nil || cmp < 0 {
			return false
		}
	}
	if pattern, ok := c.Like(); ok {
		if !strings.Contains(strings.ToLower(likeText(fv)), strings.ToLower(pattern)) {
			return false
		}
	}
	return true
}

func likeText(v value.Value) string {
	switch v.Kind() {
	case value.Text:
		s, _ := v.Text()
		return s
	case value.String:
		s, _ := v.String_()
		return s
	case value.URI:
		s, _ := v.URI()
		return s
	default:
		s, _ := value.Encode(v, "")
		return s
	}
}

type orderKey struct {
	path     []string
	sign     int
	priority int
	focus    []value.Value
}

// sortMatches orders matches by every clause carrying an Order directive,
// highest-priority (smallest magnitude) first, honouring each clause's sign
// for direction and pinning its focus values ahead of all others.
func sortMatches(matches []value.Value, clauses []query.Clause) {
	var keys []orderKey
	for _, c := range clauses {
		priority, ok := c.Criterion.Order()
		if !ok {
			continue
		}
		sign := 1
		if priority < 0 {
			sign = -1
		}
		keys = append(keys, orderKey{path: c.Expr.Path(), sign: sign, priority: absInt(priority), focus: c.Criterion.Focus()})
	}
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].priority < keys[j].priority })

	sort.SliceStable(matches, func(i, j int) bool {
		for _, k := range keys {
			fi, _ := fieldAt(matches[i], k.path)
			fj, _ := fieldAt(matches[j], k.path)
			ri, rj := focusRank(fi, k.focus), focusRank(fj, k.focus)
			if ri != rj {
				return ri < rj
			}
			cmp, err := value.Compare(fi, fj)
			if err != nil || cmp == 0 {
				continue
			}
			if k.sign < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func focusRank(v value.Value, focus []value.Value) int {
	for i, f := range focus {
		if value.Equal(v, f) {
			return i
		}
	}
	return len(focus)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func paginate(matches []value.Value, offset, limit int) []value.Value {
	if offset >= len(matches) {
		return nil
	}
	matches = matches[offset:]
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}

// project turns matches into a Table per specs' probes. When any probe is an
// aggregate, every probe is computed once over the whole match set (no
// GROUP BY support); otherwise each match contributes one row.
func project(specs *query.Specs, matches []value.Value) (*value.Tab, error) {
	probes := specs.Probes()
	aggregate := false
	for _, p := range probes {
		if p.Expr.IsAggregate() {
			aggregate = true
			break
		}
	}
	if aggregate {
		row, err := projectAggregateRow(probes, matches)
		if err != nil {
			return nil, err
		}
		return value.NewTab(row), nil
	}

	rows := make([]*value.Tup, 0, len(matches))
	for _, m := range matches {
		fields := make([]value.Field, 0, len(probes))
		for _, p := range probes {
			fv, _ := fieldAt(m, p.Expr.Path())
			fields = append(fields, value.Field{Name: p.Name, Value: fv})
		}
		tup, err := value.NewTup(fields...)
		if err != nil {
			return nil, err
		}
		rows = append(rows, tup)
	}
	return value.NewTab(rows...), nil
}

func projectAggregateRow(probes []query.Probe, matches []value.Value) (*value.Tup, error) {
	fields := make([]value.Field, 0, len(probes))
	for _, p := range probes {
		vals := make([]value.Value, 0, len(matches))
		for _, m := range matches {
			if fv, ok := fieldAt(m, p.Expr.Path()); ok {
				vals = append(vals, fv)
			}
		}
		agg, err := aggregateValue(p.Expr.Pipeline(), vals)
		if err != nil {
			return nil, fmt.Errorf("probe %q: %w", p.Name, err)
		}
		fields = append(fields, value.Field{Name: p.Name, Value: agg})
	}
	return value.NewTup(fields...)
}

func aggregateValue(pipeline []expr.Transform, vals []value.Value) (value.Value, error) {
	if len(pipeline) == 0 {
		return firstOrNil(vals), nil
	}
	switch pipeline[0] {
	case expr.Count:
		return value.IntegralValue(int64(len(vals))), nil
	case expr.Sum:
		return sumValues(vals)
	case expr.Min:
		return extremeValue(vals, true)
	case expr.Max:
		return extremeValue(vals, false)
	case expr.Avg:
		return avgValue(vals)
	default:
		return firstOrNil(vals), nil
	}
}

func firstOrNil(vals []value.Value) value.Value {
	if len(vals) == 0 {
		return value.NilValue()
	}
	return vals[0]
}

func ratOf(v value.Value) (*big.Rat, bool) {
	switch v.Kind() {
	case value.Integral:
		i, _ := v.Integral()
		return new(big.Rat).SetInt64(i), true
	case value.Floating:
		f, _ := v.Floating()
		r := new(big.Rat)
		r.SetFloat64(f)
		return r, true
	case value.Integer:
		i, _ := v.Integer()
		return new(big.Rat).SetInt(i), true
	case value.Decimal:
		d, _ := v.Decimal()
		return d.Rat(), true
	default:
		return nil, false
	}
}

func sumValues(vals []value.Value) (value.Value, error) {
	if len(vals) == 0 {
		return value.NilValue(), nil
	}
	total := new(big.Rat)
	kinds := make([]value.Kind, 0, len(vals))
	for _, v := range vals {
		r, ok := ratOf(v)
		if !ok {
			return value.Value{}, fmt.Errorf("sqlstore: SUM over non-numeric value %s", v.Kind())
		}
		total.Add(total, r)
		kinds = append(kinds, v.Kind())
	}
	return ratAsKind(total, expr.PromoteNumeric(kinds...)), nil
}

func avgValue(vals []value.Value) (value.Value, error) {
	if len(vals) == 0 {
		return value.NilValue(), nil
	}
	total := new(big.Rat)
	for _, v := range vals {
		r, ok := ratOf(v)
		if !ok {
			return value.Value{}, fmt.Errorf("sqlstore: AVG over non-numeric value %s", v.Kind())
		}
		total.Add(total, r)
	}
	total.Quo(total, new(big.Rat).SetInt64(int64(len(vals))))
	return ratAsKind(total, value.Decimal), nil
}

func extremeValue(vals []value.Value, wantMin bool) (value.Value, error) {
	if len(vals) == 0 {
		return value.NilValue(), nil
	}
	best := vals[0]
	for _, v := range vals[1:] {
		cmp, err := value.Compare(v, best)
		if err != nil {
			return value.Value{}, fmt.Errorf("sqlstore: MIN/MAX over incomparable values: %w", err)
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	kinds := make([]value.Kind, 0, len(vals))
	for _, v := range vals {
		kinds = append(kinds, v.Kind())
	}
	if expr.PromoteNumeric(kinds...) == value.Decimal && best.Kind() != value.Decimal {
		if r, ok := ratOf(best); ok {
			return ratAsKind(r, value.Decimal), nil
		}
	}
	return best, nil
}

func ratAsKind(r *big.Rat, k value.Kind) value.Value {
	switch k {
	case value.Integral:
		return value.IntegralValue(r.Num().Int64() / r.Denom().Int64())
	case value.Integer:
		q := new(big.Int).Quo(r.Num(), r.Denom())
		return value.IntegerValue(q)
	case value.Floating:
		f, _ := r.Float64()
		return value.FloatingValue(f)
	default:
		d, _ := value.ParseDec(r.FloatString(12))
		return value.DecimalValue(d)
	}
}
