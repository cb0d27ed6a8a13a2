package calc

import (
	"time"

	"github.com/valadez/empenos-api/internal/domain"
)

// dueSoonWindow is how close to the due date a loan starts showing as due-soon.
const dueSoonWindow = 3 * 24 * time.Hour

// Band returns the display status of an open loan from its due date.
// The band drives list coloring only; it never changes the arithmetic.
// Transitions: current -> due_soon -> overdue -> delinquent.
func Band(dueDate time.Time, graceDays int, now time.Time) domain.LoanStatus {
	if now.After(dueDate.Add(time.Duration(graceDays) * 24 * time.Hour)) {
		return domain.LoanStatusDelinquent
	}
	if now.After(dueDate) {
		return domain.LoanStatusOverdue
	}
	if now.After(dueDate.Add(-dueSoonWindow)) {
		return domain.LoanStatusDueSoon
	}
	return domain.LoanStatusCurrent
}
