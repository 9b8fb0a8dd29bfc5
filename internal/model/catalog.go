package model

// Business, Service and Staff records are owned by the surrounding platform and
// are read-only to the scheduling engine.

type Business struct {
	ID       string
	Name     string
	Timezone string // IANA name, e.g. "Europe/Madrid"
	OwnerID  string
}

type Service struct {
	ID           string
	BusinessID   string
	Name         string
	DurationMins int
	BufferBefore int // minutes
	BufferAfter  int // minutes
	Price        string
	Deposit      string
	MaxPerSlot   int // >1 enables group-capacity bookings
	IsActive     bool
}

func (s Service) RequiresDeposit() bool {
	return s.Deposit != "" && s.Deposit != "0" && s.Deposit != "0.00"
}

type Staff struct {
	ID         string
	BusinessID string
	Name       string
	IsActive   bool
}
