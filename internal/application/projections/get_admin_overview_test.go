package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"mastery/internal/adapters/storage"
	enrollmentStore "mastery/internal/adapters/storage/enrollment"
	"mastery/internal/domain/enrollment"
)

func seededStore(t *testing.T) *enrollmentStore.SQLStore {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := enrollmentStore.NewSQLStore(db, storage.SQLite)

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rows := []struct{ id, user, email string }{
		{"e-1", "u-1", "ann@example.com"},
		{"e-2", "u-2", "bob@example.com"},
		{"e-3", "u-3", "cara@agency.test"},
	}
	for i, r := range rows {
		e := enrollment.New(r.id, r.user, r.email, 97, base.Add(time.Duration(i)*time.Hour))
		if err := s.Create(context.Background(), e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := s.ConfirmPayment(context.Background(), "u-2", enrollment.PaymentMethodManual); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	return s
}

// TestQueryGetAdminOverview_NewestFirstWithTotals verifies ordering and counts.
func TestQueryGetAdminOverview_NewestFirstWithTotals(t *testing.T) {
	res, err := QueryGetAdminOverview(context.Background(), GetAdminOverviewQuery{}, GetAdminOverviewDeps{Enrollments: seededStore(t)})
	if err != nil {
		t.Fatalf("QueryGetAdminOverview() = %v", err)
	}
	if res.Totals != (AdminTotals{All: 3, Paid: 1, Unpaid: 2}) {
		t.Errorf("Totals = %+v", res.Totals)
	}
	if len(res.Enrollments) != 3 || res.Enrollments[0].ID != "e-3" || res.Enrollments[2].ID != "e-1" {
		t.Errorf("Enrollments not newest first: %+v", res.Enrollments)
	}
}

// TestQueryGetAdminOverview_Search verifies search filters rows but not totals.
func TestQueryGetAdminOverview_Search(t *testing.T) {
	deps := GetAdminOverviewDeps{Enrollments: seededStore(t)}
	tests := []struct {
		search string
		want   []string
	}{
		{"EXAMPLE.com", []string{"e-2", "e-1"}},
		{"e-3", []string{"e-3"}},
		{"  cara ", []string{"e-3"}},
		{"nobody", nil},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			res, err := QueryGetAdminOverview(context.Background(), GetAdminOverviewQuery{Search: tt.search}, deps)
			if err != nil {
				t.Fatalf("QueryGetAdminOverview() = %v", err)
			}
			if res.Totals.All != 3 {
				t.Errorf("Totals.All = %d, want 3", res.Totals.All)
			}
			if len(res.Enrollments) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(res.Enrollments), len(tt.want))
			}
			for i, id := range tt.want {
				if res.Enrollments[i].ID != id {
					t.Errorf("row %d = %s, want %s", i, res.Enrollments[i].ID, id)
				}
			}
		})
	}
}

type failingLister struct{}

func (failingLister) List(context.Context, enrollmentStore.ListFilter) ([]enrollment.Enrollment, error) {
	return nil, errors.New("connection refused")
}

// TestQueryGetAdminOverview_StoreError verifies errors pass through.
func TestQueryGetAdminOverview_StoreError(t *testing.T) {
	if _, err := QueryGetAdminOverview(context.Background(), GetAdminOverviewQuery{}, GetAdminOverviewDeps{Enrollments: failingLister{}}); err == nil {
		t.Fatal("expected error")
	}
}
