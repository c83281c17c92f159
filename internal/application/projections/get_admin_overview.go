package projections

import (
	"context"
	"strings"

	enrollmentStore "mastery/internal/adapters/storage/enrollment"
	"mastery/internal/domain/enrollment"
)

// EnrollmentLister lists stored enrollments.
type EnrollmentLister interface {
	List(ctx context.Context, filter enrollmentStore.ListFilter) ([]enrollment.Enrollment, error)
}

// GetAdminOverviewQuery carries the admin search box.
type GetAdminOverviewQuery struct {
	Search string
}

// AdminTotals counts enrollments by payment state. Totals ignore the search.
type AdminTotals struct {
	All    int
	Paid   int
	Unpaid int
}

// GetAdminOverviewResult is the admin panel read model.
type GetAdminOverviewResult struct {
	Search      string
	Enrollments []enrollment.Enrollment
	Totals      AdminTotals
}

// GetAdminOverviewDeps holds dependencies for QueryGetAdminOverview.
type GetAdminOverviewDeps struct {
	Enrollments EnrollmentLister
}

// adminListLimit bounds the rows shown in the panel.
const adminListLimit = 500

// QueryGetAdminOverview lists enrollments newest first with totals.
// PRE: caller has verified the admin session
// POST: Enrollments match Search on email or id, case-insensitively; Totals cover every enrollment
func QueryGetAdminOverview(ctx context.Context, q GetAdminOverviewQuery, deps GetAdminOverviewDeps) (GetAdminOverviewResult, error) {
	search := strings.TrimSpace(q.Search)

	all, err := deps.Enrollments.List(ctx, enrollmentStore.ListFilter{})
	if err != nil {
		return GetAdminOverviewResult{}, err
	}
	var totals AdminTotals
	for _, e := range all {
		totals.All++
		if e.IsPaid() {
			totals.Paid++
		} else {
			totals.Unpaid++
		}
	}

	rows := all
	if search != "" {
		rows, err = deps.Enrollments.List(ctx, enrollmentStore.ListFilter{Search: search, Limit: adminListLimit})
		if err != nil {
			return GetAdminOverviewResult{}, err
		}
	} else if len(rows) > adminListLimit {
		rows = rows[:adminListLimit]
	}

	return GetAdminOverviewResult{Search: search, Enrollments: rows, Totals: totals}, nil
}
