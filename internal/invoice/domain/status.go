package domain

import "time"

// DeriveStatus recomputes the payment-driven status of inv at now. Drafts,
// cancelled invoices and credit notes keep their stored status.
func DeriveStatus(inv Invoice, now time.Time) Status {
	switch inv.Status {
	case StatusDraft, StatusCancelled, StatusCredited:
		return inv.Status
	}
	if inv.AmountSettled.GreaterThanOrEqual(inv.TotalTTC) {
		return StatusPaid
	}
	if inv.Overdue(now) {
		return StatusOverdue
	}
	if inv.AmountSettled.IsPositive() {
		return StatusPartiallyPaid
	}
	if inv.SentAt != nil {
		return StatusSent
	}
	return StatusIssued
}

// Overdue reports whether the due date lies before the calendar day of now.
// An invoice is still on time for the whole of its due date.
func (i Invoice) Overdue(now time.Time) bool {
	if i.DueDate == nil {
		return false
	}
	return Day(now).After(Day(*i.DueDate))
}

// DueDate returns the due day for an invoice issued at issuedAt.
func DueDate(issuedAt time.Time, termsDays int) time.Time {
	return Day(issuedAt).AddDate(0, 0, termsDays)
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
