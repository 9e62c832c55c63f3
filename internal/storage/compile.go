package storage

import (
	"fmt"
	"strings"
	"time"

	"ledgerdesk/internal/store"
)

// Column allow-lists per collection. Compiling a predicate that names a
// field outside its collection's list is an error, never string
// interpolation.
var (
	actorColumns = map[string]string{
		store.FieldID:            "id",
		store.FieldAccountNumber: "account_number",
		store.FieldFullName:      "fullname",
		store.FieldEmail:         "email",
		store.FieldUsername:      "username",
		store.FieldBalance:       "balance",
		store.FieldIsAdmin:       "is_admin",
		store.FieldIsActive:      "is_active",
		store.FieldRole:          "role",
	}
	transactionColumns = map[string]string{
		store.FieldID:          "id",
		store.FieldActorID:     "actor_id",
		store.FieldCreatedAt:   "created_at",
		store.FieldType:        "type",
		store.FieldAmount:      "amount",
		store.FieldStatus:      "status",
		store.FieldDescription: "description",
	}
)

// compiler renders a predicate tree into one parameterized SQL WHERE
// clause for a fixed collection.
type compiler struct {
	columns map[string]string
	args    []any
}

// compileWhere renders p for the given column map. A nil predicate
// compiles to an empty clause.
func compileWhere(p store.Pred, columns map[string]string) (clause string, args []any, err error) {
	if p == nil {
		return "", nil, nil
	}
	c := &compiler{columns: columns}
	clause, err = c.compile(p)
	if err != nil {
		return "", nil, err
	}
	return clause, c.args, nil
}

func (c *compiler) compile(p store.Pred) (string, error) {
	switch v := p.(type) {
	case store.EqPred:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, bindValue(v.Value))
		return col + " = ?", nil

	case store.ContainsPred:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, "%"+escapeLike(strings.ToLower(v.Substr))+"%")
		return "lower(" + col + ") LIKE ? ESCAPE '\\'", nil

	case store.GtePred:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, bindValue(v.Value))
		return col + " >= ?", nil

	case store.LtePred:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		c.args = append(c.args, bindValue(v.Value))
		return col + " <= ?", nil

	case store.InPred:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		if len(v.Values) == 0 {
			// IN over nothing matches nothing.
			return "1 = 0", nil
		}
		placeholders := make([]string, len(v.Values))
		for i, val := range v.Values {
			placeholders[i] = "?"
			c.args = append(c.args, val)
		}
		return col + " IN (" + strings.Join(placeholders, ", ") + ")", nil

	case store.OrPred:
		return c.compileJunction(v.Preds, " OR ")

	case store.AndPred:
		return c.compileJunction(v.Preds, " AND ")

	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func (c *compiler) compileJunction(preds []store.Pred, op string) (string, error) {
	if len(preds) == 0 {
		return "", fmt.Errorf("empty junction")
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		part, err := c.compile(p)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

func (c *compiler) column(field string) (string, error) {
	col, ok := c.columns[field]
	if !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}
	return col, nil
}

// compileOrder renders the ORDER BY column list. Timestamps are stored
// as fixed-width UTC RFC 3339 text, so lexical ordering matches
// chronological.
func compileOrder(order []store.Sort, columns map[string]string) (string, error) {
	if len(order) == 0 {
		return "", nil
	}
	parts := make([]string, len(order))
	for i, s := range order {
		col, ok := columns[s.Field]
		if !ok {
			return "", fmt.Errorf("unknown sort field %q", s.Field)
		}
		if s.Desc {
			parts[i] = col + " DESC"
		} else {
			parts[i] = col + " ASC"
		}
	}
	return strings.Join(parts, ", "), nil
}

// timeFormat is RFC 3339 with the fraction padded to nanosecond width.
// RFC3339Nano trims trailing zeros, which would make "10:00:00Z" sort
// after "10:00:00.5Z"; the fixed width keeps lexical order
// chronological.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// bindValue maps domain values onto their SQLite representations:
// timestamps as fixed-width UTC RFC 3339 text, booleans as 0/1.
func bindValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timeFormat)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
