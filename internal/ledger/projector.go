// Package ledger holds the pure projection functions that fold the
// append-only event log into current withdrawal state and the aggregate
// sums backing available-balance computation. Nothing here touches the
// database; callers pass in freshly read events.
package ledger

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rentfolio-backend/internal/domain"
)

// The event log is shared with non-withdrawal audit entries, so entries
// that fail snapshot validation are dropped from projection rather than
// failing the whole read. The counter keeps the drop observable.
var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ledger_projection_dropped_events_total",
	Help: "Event log entries excluded from withdrawal projection due to malformed payloads",
})

func decodeSnapshot(e domain.Event) (*domain.WithdrawalSnapshot, bool) {
	var snap domain.WithdrawalSnapshot
	if err := json.Unmarshal(e.Details, &snap); err != nil {
		droppedEvents.Inc()
		return nil, false
	}
	if !snap.Status.Valid() || !snap.Method.Valid() || snap.Amount <= 0 {
		droppedEvents.Inc()
		return nil, false
	}
	return &snap, true
}

// ProjectWithdrawals folds withdrawal events into the latest state per
// target id. Events are grouped by TargetID and ordered by CreatedAt
// ascending; the first event fixes RequestedAt and requester identity, the
// last event wins for status and snapshot fields.
func ProjectWithdrawals(events []domain.Event) []domain.WithdrawalRecord {
	grouped := make(map[string][]domain.Event)
	order := make([]string, 0)
	for _, e := range events {
		if e.TargetType != domain.TargetTypeWithdrawal {
			continue
		}
		if _, seen := grouped[e.TargetID]; !seen {
			order = append(order, e.TargetID)
		}
		grouped[e.TargetID] = append(grouped[e.TargetID], e)
	}

	records := make([]domain.WithdrawalRecord, 0, len(grouped))
	for _, id := range order {
		if rec := ProjectOne(grouped[id]); rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// ProjectOne folds the event history of a single withdrawal into its
// current record. It returns nil when no event carries a valid snapshot.
func ProjectOne(events []domain.Event) *domain.WithdrawalRecord {
	sorted := make([]domain.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var rec *domain.WithdrawalRecord
	for _, e := range sorted {
		snap, ok := decodeSnapshot(e)
		if !ok {
			continue
		}
		if rec == nil {
			rec = &domain.WithdrawalRecord{
				ID:          e.TargetID,
				ActorID:     e.ActorID,
				ActorEmail:  e.ActorEmail,
				RequestedAt: e.CreatedAt,
			}
		}
		rec.Status = snap.Status
		rec.Amount = snap.Amount
		rec.Method = snap.Method
		rec.AccountLabel = snap.AccountLabel
		rec.AccountNumber = snap.AccountNumber
		rec.Note = snap.Note
		rec.UpdatedAt = e.CreatedAt
	}
	return rec
}

// SumReserved totals amounts still counted against available balance
// (status REQUESTED, APPROVED or PAID).
func SumReserved(records []domain.WithdrawalRecord) float64 {
	var total float64
	for i := range records {
		if records[i].Reserved() {
			total += records[i].Amount
		}
	}
	return total
}

// SumPaid totals amounts of withdrawals whose current status is PAID.
func SumPaid(records []domain.WithdrawalRecord) float64 {
	var total float64
	for i := range records {
		if records[i].Status == domain.WithdrawalStatusPaid {
			total += records[i].Amount
		}
	}
	return total
}

// DayStart returns the start of the UTC calendar day containing t.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func requestedWithin(rec *domain.WithdrawalRecord, dayStart time.Time) bool {
	at := rec.RequestedAt.UTC()
	return !at.Before(dayStart) && at.Before(dayStart.Add(24*time.Hour))
}

// SumDailyRequested totals amounts of withdrawals requested within the UTC
// day starting at dayStart that still hold a reservation.
func SumDailyRequested(records []domain.WithdrawalRecord, dayStart time.Time) float64 {
	var total float64
	for i := range records {
		if records[i].Reserved() && requestedWithin(&records[i], dayStart) {
			total += records[i].Amount
		}
	}
	return total
}

// CountDailyRequested counts withdrawals requested within the UTC day
// starting at dayStart that still hold a reservation. Rejected requests no
// longer count against the daily ceiling.
func CountDailyRequested(records []domain.WithdrawalRecord, dayStart time.Time) int {
	var n int
	for i := range records {
		if records[i].Reserved() && requestedWithin(&records[i], dayStart) {
			n++
		}
	}
	return n
}

// AvailableBalance computes max(0, revenue - reserved).
func AvailableBalance(totalRevenue, reserved float64) float64 {
	available := totalRevenue - reserved
	if available < 0 {
		return 0
	}
	return available
}
