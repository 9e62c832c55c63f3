// Package export serializes record sets into deterministic CSV. One
// quoting policy applies to every shape: each field is quoted, embedded
// quotes are doubled, and embedded newlines stay inside the quoted
// field (RFC 4180). Filenames are a caller concern; the serializer
// returns bytes plus a content type.
package export

import (
	"bytes"
	"strconv"
	"time"

	"ledgerdesk/internal/core"
)

// ContentType is the suggested content type for every export shape.
const ContentType = "text/csv; charset=utf-8"

// Shape names the exported record kind.
type Shape string

const (
	ShapeActors       Shape = "actors"
	ShapeTransactions Shape = "transactions"
)

// Valid reports whether s names a known export shape.
func (s Shape) Valid() bool {
	return s == ShapeActors || s == ShapeTransactions
}

var actorHeader = []string{"id", "fullname", "account_number", "email", "balance", "is_admin", "is_active", "role"}

var transactionHeader = []string{"id", "created_at", "user", "type", "amount", "status", "description"}

// Actors serializes actor rows in input order.
func Actors(rows []core.Actor) []byte {
	var buf bytes.Buffer
	writeRecord(&buf, actorHeader)
	for _, a := range rows {
		writeRecord(&buf, []string{
			a.ID,
			a.FullName,
			a.AccountNumber,
			a.Email,
			formatAmount(a.Balance),
			strconv.FormatBool(a.IsAdmin),
			strconv.FormatBool(a.IsActive),
			a.Role,
		})
	}
	return buf.Bytes()
}

// Transactions serializes transaction rows in input order. The user
// column takes the resolved label for the owning actor, falling back to
// the raw actor id; ownerless rows export an empty field.
func Transactions(rows []core.Transaction, labels map[string]string) []byte {
	var buf bytes.Buffer
	writeRecord(&buf, transactionHeader)
	for _, t := range rows {
		user := ""
		if t.ActorID != "" {
			user = labels[t.ActorID]
			if user == "" {
				user = t.ActorID
			}
		}
		created := ""
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.Format(time.RFC3339)
		}
		writeRecord(&buf, []string{
			t.ID,
			created,
			user,
			t.Type,
			formatAmount(t.Amount),
			t.Status,
			t.Description,
		})
	}
	return buf.Bytes()
}

func writeRecord(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		for _, r := range f {
			if r == '"' {
				buf.WriteString(`""`)
				continue
			}
			buf.WriteRune(r)
		}
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
