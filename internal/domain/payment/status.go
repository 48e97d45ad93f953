package payment

import "fmt"

// Status is the canonical, gateway-agnostic payment status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusPaid:       2,
	StatusFailed:     2,
	StatusRefunded:   3,
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// ParseStatus validates a stored status value.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("payment: unknown status %q", v)
	}
	return s, nil
}

// CanAdvance reports whether moving from one canonical status to another moves the
// payment forward. Stale or repeated updates return false.
//
// failed -> paid is accepted because a buyer may retry a failed attempt successfully.
// refunded is reachable only from paid.
func CanAdvance(from, to Status) bool {
	if from == to || !from.Valid() || !to.Valid() {
		return false
	}
	switch {
	case to == StatusRefunded:
		return from == StatusPaid
	case from == StatusFailed && to == StatusPaid:
		return true
	}
	return statusRank[to] > statusRank[from]
}
