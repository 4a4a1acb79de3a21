package core

import "time"

// Child is a member of the household that expenses can be assigned to.
type Child struct {
	ID        string
	AccountID string
	Name      string
}

// CycleReport is the flattened per-cycle overview handed to exporters.
// RecurringRunRate is the monthly commitment of active templates, not spend.
type CycleReport struct {
	AccountID        string
	CycleStart       Date
	CycleEnd         Date // exclusive
	Pending          Money
	Approved         Money
	Rejected         Money
	Paid             Money
	OneTimeInCycle   Money
	RecurringRunRate Money
	GeneratedAt      time.Time
}

// Settled is approved plus paid.
func (r CycleReport) Settled() Money {
	return r.Approved.Add(r.Paid)
}
