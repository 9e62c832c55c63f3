package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"ledgerdesk/internal/core"
)

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse exported csv: %v", err)
	}
	return records
}

func TestActors(t *testing.T) {
	data := Actors([]core.Actor{
		{
			ID:            "u1",
			FullName:      `Ada "The Countess" Lovelace`,
			AccountNumber: "ACC-100",
			Email:         "ada@example.com",
			Balance:       1250.5,
			IsAdmin:       true,
			IsActive:      true,
			Role:          "admin",
		},
		{ID: "u2", FullName: "Grace, Hopper\nRDML", AccountNumber: "ACC-200"},
	})

	records := parseCSV(t, data)
	if len(records) != 3 {
		t.Fatalf("records = %d, want header + 2 rows", len(records))
	}
	wantHeader := []string{"id", "fullname", "account_number", "email", "balance", "is_admin", "is_active", "role"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][1] != `Ada "The Countess" Lovelace` {
		t.Errorf("fullname = %q, embedded quotes lost", records[1][1])
	}
	if records[1][4] != "1250.5" || records[1][5] != "true" || records[1][7] != "admin" {
		t.Errorf("row 1 = %v", records[1])
	}
	if records[2][1] != "Grace, Hopper\nRDML" {
		t.Errorf("fullname = %q, comma/newline not preserved", records[2][1])
	}
	if records[2][3] != "" || records[2][5] != "false" {
		t.Errorf("row 2 = %v", records[2])
	}
}

func TestActorsEveryFieldQuoted(t *testing.T) {
	data := Actors([]core.Actor{{ID: "u1", Balance: 10}})
	for i, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		for j, field := range strings.Split(line, ",") {
			if !strings.HasPrefix(field, `"`) || !strings.HasSuffix(field, `"`) {
				t.Errorf("line %d field %d = %s, want quoted", i, j, field)
			}
		}
	}
}

func TestTransactions(t *testing.T) {
	created := time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)
	data := Transactions([]core.Transaction{
		{ID: "t1", ActorID: "u1", CreatedAt: created, Type: "payroll", Amount: 150, Status: "completed", Description: "march salary"},
		{ID: "t2", ActorID: "u9", Type: "atm", Amount: 40.25, Status: "pending"},
		{ID: "t3", Type: "fee", Amount: 2},
	}, map[string]string{"u1": "ACC-100"})

	records := parseCSV(t, data)
	if len(records) != 4 {
		t.Fatalf("records = %d, want header + 3 rows", len(records))
	}
	wantHeader := []string{"id", "created_at", "user", "type", "amount", "status", "description"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][1] != "2026-03-10T14:30:00Z" {
		t.Errorf("created_at = %q", records[1][1])
	}
	if records[1][2] != "ACC-100" {
		t.Errorf("user = %q, want resolved label", records[1][2])
	}
	if records[2][1] != "" {
		t.Errorf("zero created_at = %q, want empty", records[2][1])
	}
	if records[2][2] != "u9" {
		t.Errorf("user = %q, want raw id fallback", records[2][2])
	}
	if records[2][4] != "40.25" {
		t.Errorf("amount = %q", records[2][4])
	}
	if records[3][2] != "" {
		t.Errorf("ownerless user = %q, want empty", records[3][2])
	}
}

func TestShapeValid(t *testing.T) {
	for _, tt := range []struct {
		shape Shape
		want  bool
	}{
		{ShapeActors, true},
		{ShapeTransactions, true},
		{Shape("accounts"), false},
		{Shape(""), false},
	} {
		if got := tt.shape.Valid(); got != tt.want {
			t.Errorf("Shape(%q).Valid() = %v, want %v", tt.shape, got, tt.want)
		}
	}
}
