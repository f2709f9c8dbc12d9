package domain

import "time"

// LaneStat is an aggregate over loads grouped by pickup/drop state pair.
type LaneStat struct {
	PickupState    string
	DropState      string
	Loads          int
	AvgMarginCents float64
	LostLoads      int
	DeliveredLoads int
}

// CsrStat is an aggregate over loads grouped by the creating user.
type CsrStat struct {
	UserID         int64
	UserName       string
	Loads          int
	QuotedLoads    int
	WonLoads       int
	AvgMarginCents float64
	LaneCount      int
	RepeatShippers int
	ShipperCount   int
}

// ShipperStat is an aggregate over loads grouped by shipper.
type ShipperStat struct {
	ShipperID      int64
	Loads          int
	AvgMarginCents float64
	LaneCount      int
	FirstLoadAt    time.Time
	LastLoadAt     time.Time
}
