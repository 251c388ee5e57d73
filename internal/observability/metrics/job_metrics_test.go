package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/gescom/internal/apperror"
	"gorm.io/gorm"
)

func TestClassifyJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: JobReasonDeadlineExceeded},
		{name: "lock_timeout", err: apperror.New(apperror.KindConflict, "lock_timeout"), want: JobReasonLockTimeout},
		{name: "business_rule", err: apperror.ErrInvalidTransition, want: JobReasonBusinessRule},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: JobReasonDBLockTimeout},
		{name: "serialization_failure_pq", err: &pq.Error{Code: "40001"}, want: JobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: JobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: JobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsJobErrorRetryable(t *testing.T) {
	if !IsJobErrorRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure to be retryable")
	}
	if IsJobErrorRetryable(apperror.ErrOverPayment) {
		t.Fatalf("expected business rule to be final")
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newJobMetrics(registry, Config{ServiceName: "gescom", Environment: "test"})

	m.AddBatchProcessed("invoice_overdue_sweep", "invoices", 3)
	m.AddBatchProcessed("invoice_overdue_sweep", "invoices", 0)

	got := testutil.ToFloat64(m.batchProcessed.WithLabelValues("invoice_overdue_sweep", "invoices"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}
