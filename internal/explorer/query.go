package explorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eda-explorer/backend/internal/models"
)

// Aggregates understood by Aggregate.
const (
	AggCount    = "count"
	AggSum      = "sum"
	AggAvg      = "avg"
	AggMin      = "min"
	AggMax      = "max"
	AggDistinct = "distinct"
)

// Measure is one aggregate column. Field may be empty for count.
type Measure struct {
	Field string `json:"field,omitempty"`
	Agg   string `json:"agg"`
}

// Label is the output column name of the measure.
func (m Measure) Label() string {
	if m.Field == "" {
		return m.Agg
	}
	return m.Agg + "(" + m.Field + ")"
}

// Query groups the dataset by up to Config.MaxGroupBy fields and computes
// the measures per group. No measures means a row count.
type Query struct {
	GroupBy  []string  `json:"groupBy"`
	Measures []Measure `json:"measures"`
	Limit    int       `json:"limit,omitempty"`
}

// Result is a small table of aggregate rows, ready for JSON.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Aggregate validates q against the dataset schema and runs it.
func (s *Store) Aggregate(ctx context.Context, q Query) (*Result, error) {
	stmt, err := s.buildQuery(q)
	if err != nil {
		return nil, err
	}

	select {
	case s.querySem <- struct{}{}:
		defer func() { <-s.querySem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("aggregate query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = plain(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	return res, rows.Err()
}

func (s *Store) buildQuery(q Query) (string, error) {
	if len(q.GroupBy) > s.cfg.MaxGroupBy {
		return "", fmt.Errorf("%w: at most %d group fields, got %d", ErrInvalidQuery, s.cfg.MaxGroupBy, len(q.GroupBy))
	}
	measures := q.Measures
	if len(measures) == 0 {
		measures = []Measure{{Agg: AggCount}}
	}

	var selects, groups []string
	seen := make(map[string]bool)
	for _, f := range q.GroupBy {
		if _, ok := s.fields[f]; !ok {
			return "", fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, f)
		}
		if seen[f] {
			return "", fmt.Errorf("%w: field %q grouped twice", ErrInvalidQuery, f)
		}
		seen[f] = true
		selects = append(selects, quoteIdent(f))
		groups = append(groups, quoteIdent(f))
	}
	for _, m := range measures {
		expr, err := s.measureExpr(m)
		if err != nil {
			return "", err
		}
		selects = append(selects, expr+" AS "+quoteIdent(m.Label()))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(selects, ", "), tableName)
	if len(groups) > 0 {
		fmt.Fprintf(&b, " GROUP BY %s ORDER BY %s", strings.Join(groups, ", "), orderList(groups))
	}
	fmt.Fprintf(&b, " LIMIT %d", limit)
	return b.String(), nil
}

func (s *Store) measureExpr(m Measure) (string, error) {
	agg := strings.ToLower(strings.TrimSpace(m.Agg))
	if agg == AggCount && m.Field == "" {
		return "COUNT(*)", nil
	}
	typ, ok := s.fields[m.Field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, m.Field)
	}
	col := quoteIdent(m.Field)

	switch agg {
	case AggCount:
		return "COUNT(" + col + ")", nil
	case AggDistinct:
		return "COUNT(DISTINCT " + col + ")", nil
	case AggMin:
		return "MIN(" + col + ")", nil
	case AggMax:
		return "MAX(" + col + ")", nil
	case AggSum, AggAvg:
		if typ.Family() != models.FamilyNumeric {
			return "", fmt.Errorf("%w: %s needs a numeric field, %q is %s", ErrInvalidQuery, agg, m.Field, typ)
		}
		// SUM of BIGINT is HUGEINT; keep results in float64.
		if agg == AggSum {
			return "CAST(SUM(" + col + ") AS DOUBLE)", nil
		}
		return "AVG(" + col + ")", nil
	}
	return "", fmt.Errorf("%w: unknown aggregate %q", ErrInvalidQuery, m.Agg)
}

func orderList(groups []string) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = g + " ASC NULLS LAST"
	}
	return strings.Join(parts, ", ")
}

func plain(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(models.TimeLayout)
	case []byte:
		return string(x)
	}
	return v
}
