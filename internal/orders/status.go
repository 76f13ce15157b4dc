package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusApproved: true, StatusRejected: true},
	StatusProcessing: {StatusApproved: true, StatusRejected: true},
	StatusApproved:   {},
	StatusRejected:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// IsTerminal: approved/rejected tidak boleh dimutasi lagi.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
