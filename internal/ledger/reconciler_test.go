package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/paycore/payroll-engine/internal/domain"
	"github.com/paycore/payroll-engine/pkg/dateutil"
	"github.com/paycore/payroll-engine/pkg/money"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcilerApplyEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("arrears-only order completes when paid off", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		r := NewReconciler(NewMemoryStore(), WithMetrics(NewMetrics(reg)))

		first := event("EMP-1", "CS-1", "PC-1", "300", "300", arrears("500"))
		first.ArrearsOnly = true
		second := event("EMP-1", "CS-1", "PC-2", "200", "200", arrears("500"))
		second.ArrearsOnly = true

		report, err := r.ApplyEvents(ctx, []domain.WithholdingEvent{first, second, second})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Applied)
		assert.Equal(t, 1, report.Duplicates)
		require.Len(t, report.Completed, 1)
		assert.Equal(t, "CS-1", report.Completed[0].OrderID)
		require.Len(t, report.Entries, 2)
		assert.Equal(t, domain.LedgerActive, report.Entries[0].Status)
		assert.Equal(t, domain.LedgerCompleted, report.Entries[1].Status)

		got, err := r.Store().Get(ctx, first.Key())
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerCompleted, got.Status)

		assert.Equal(t, float64(2), testutil.ToFloat64(r.metrics.events.WithLabelValues("applied")))
		assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.events.WithLabelValues("duplicate")))
		assert.Equal(t, float64(1), testutil.ToFloat64(r.metrics.completed))
	})

	t.Run("lifetime cap completes the order", func(t *testing.T) {
		r := NewReconciler(NewMemoryStore())
		ev := event("EMP-1", "CRED-1", "PC-1", "100", "0", nil)
		ev.LifetimeCap = money.Ptr(money.MustParse("100"))

		report, err := r.ApplyEvents(ctx, []domain.WithholdingEvent{ev})
		require.NoError(t, err)
		assert.Len(t, report.Completed, 1)
	})

	t.Run("redelivery completes an order left active", func(t *testing.T) {
		store := NewMemoryStore()
		r := NewReconciler(store)
		ev := event("EMP-1", "CS-9", "PC-1", "500", "500", arrears("500"))
		ev.ArrearsOnly = true

		// applied without the completion step, as after a crash
		_, err := store.Apply(ctx, ev)
		require.NoError(t, err)

		report, err := r.ApplyEvents(ctx, []domain.WithholdingEvent{ev})
		require.NoError(t, err)
		assert.Equal(t, 0, report.Applied)
		assert.Equal(t, 1, report.Duplicates)
		require.Len(t, report.Completed, 1)

		got, err := store.Get(ctx, ev.Key())
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerCompleted, got.Status)
		assert.Equal(t, 1, got.EventCount)
	})

	t.Run("order with a current obligation stays active", func(t *testing.T) {
		r := NewReconciler(NewMemoryStore())
		ev := event("EMP-1", "CS-1", "PC-1", "300", "100", arrears("100"))

		report, err := r.ApplyEvents(ctx, []domain.WithholdingEvent{ev})
		require.NoError(t, err)
		assert.Empty(t, report.Completed)
		assert.True(t, report.Entries[0].RemainingArrears.IsZero())
	})

	t.Run("invalid event stops the run", func(t *testing.T) {
		r := NewReconciler(NewMemoryStore())
		good := event("EMP-1", "CS-1", "PC-1", "10", "0", nil)
		bad := event("EMP-1", "CS-1", "PC-2", "10", "0", nil)
		bad.EventID = ""

		report, err := r.ApplyEvents(ctx, []domain.WithholdingEvent{good, bad})
		assert.ErrorIs(t, err, ErrInvalidEvent)
		assert.Equal(t, 1, report.Applied)
	})

	t.Run("cancelled context", func(t *testing.T) {
		r := NewReconciler(NewMemoryStore())
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.ApplyEvents(cctx, []domain.WithholdingEvent{event("EMP-1", "CS-1", "PC-1", "10", "0", nil)})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReconcilerHydrateOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewReconciler(store)

	_, err := store.Apply(ctx, event("EMP-1", "CS-1", "PC-1", "250", "100", arrears("1000")))
	require.NoError(t, err)
	_, err = store.Apply(ctx, event("EMP-1", "DONE-1", "PC-1", "50", "50", arrears("50")))
	require.NoError(t, err)
	require.NoError(t, store.MarkCompleted(ctx, domain.LedgerKey{EmployerID: "EMP-1", EmployeeID: "EE-1", OrderID: "DONE-1"}))

	orders := []domain.GarnishmentOrder{
		{OrderID: "CS-1", ArrearsBefore: arrears("1000")},
		{OrderID: "DONE-1", ArrearsBefore: arrears("50")},
		{OrderID: "NEW-1", ArrearsBefore: arrears("75")},
	}
	got, err := r.HydrateOrders(ctx, "EMP-1", "EE-1", orders)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "CS-1", got[0].OrderID)
	assert.Equal(t, int64(25000), got[0].WithheldToDate.Cents)
	assert.Equal(t, int64(90000), got[0].ArrearsBefore.Cents)

	assert.Equal(t, "NEW-1", got[1].OrderID)
	assert.Equal(t, int64(7500), got[1].ArrearsBefore.Cents)

	// caller's slice is untouched
	assert.Equal(t, int64(100000), orders[0].ArrearsBefore.Cents)
}

func TestArrearsAtLeast12Weeks(t *testing.T) {
	served := dateutil.Date(2025, time.January, 1)
	tests := []struct {
		name  string
		check time.Time
		want  bool
	}{
		{"same day", served, false},
		{"83 days", served.AddDate(0, 0, 83), false},
		{"84 days", served.AddDate(0, 0, 84), true},
		{"a year", served.AddDate(1, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArrearsAtLeast12Weeks(served, tt.check))
		})
	}
}

func TestSupportCapContext(t *testing.T) {
	check := dateutil.Date(2025, time.June, 13)
	old := dateutil.Date(2025, time.January, 2)
	recent := dateutil.Date(2025, time.May, 1)

	tests := []struct {
		name        string
		orders      []domain.GarnishmentOrder
		wantArrears bool
	}{
		{
			name:        "old support order with balance",
			orders:      []domain.GarnishmentOrder{{OrderID: "CS-1", Type: domain.GarnishmentChildSupport, ServedDate: &old, ArrearsBefore: arrears("100")}},
			wantArrears: true,
		},
		{
			name:   "recent support order",
			orders: []domain.GarnishmentOrder{{OrderID: "CS-1", Type: domain.GarnishmentChildSupport, ServedDate: &recent, ArrearsBefore: arrears("100")}},
		},
		{
			name:   "paid-off arrears",
			orders: []domain.GarnishmentOrder{{OrderID: "CS-1", Type: domain.GarnishmentSpousalSupport, ServedDate: &old, ArrearsBefore: arrears("0")}},
		},
		{
			name:   "creditor order is ignored",
			orders: []domain.GarnishmentOrder{{OrderID: "CR-1", Type: domain.GarnishmentCreditor, ServedDate: &old, ArrearsBefore: arrears("100")}},
		},
		{
			name:   "no served date",
			orders: []domain.GarnishmentOrder{{OrderID: "CS-1", Type: domain.GarnishmentChildSupport, ArrearsBefore: arrears("100")}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SupportCapContext(tt.orders, check, true)
			require.NotNil(t, got)
			assert.True(t, got.SupportsOtherDependents)
			assert.Equal(t, tt.wantArrears, got.ArrearsAtLeast12Weeks)
		})
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeApply(time.Now(), false, nil)
		m.orderCompleted()
	})
}
