package marketdata

import (
	"time"

	"github.com/nasdaq/itchcore/internal/domain"
)

// MessageType distinguishes the kinds of update a subscriber can filter
// on.
type MessageType uint8

const (
	Level1Update MessageType = iota + 1
	Level2Update
	TradeReport
	SymbolStatus
	SnapshotL1
	SnapshotL2
)

func (t MessageType) String() string {
	switch t {
	case Level1Update:
		return "LEVEL1_UPDATE"
	case Level2Update:
		return "LEVEL2_UPDATE"
	case TradeReport:
		return "TRADE_REPORT"
	case SymbolStatus:
		return "SYMBOL_STATUS"
	case SnapshotL1:
		return "SNAPSHOT_L1"
	case SnapshotL2:
		return "SNAPSHOT_L2"
	default:
		return "UNKNOWN"
	}
}

// L2Action distinguishes a full depth snapshot from an incremental
// price-level update within a Level2 message.
type L2Action uint8

const (
	L2Snapshot L2Action = iota + 1
	L2Incremental
)

// L2PriceLevel is one row of a depth-of-book update.
type L2PriceLevel struct {
	Price    domain.Price
	Quantity domain.Quantity
	Orders   uint32
}

// Level1Data is the inside market for a symbol.
type Level1Data struct {
	Symbol   domain.SymbolID
	BidPrice domain.Price
	BidSize  domain.Quantity
	AskPrice domain.Price
	AskSize  domain.Quantity
}

// Level2Data is a depth-of-book update, either a full snapshot or a
// single changed price level.
type Level2Data struct {
	Symbol domain.SymbolID
	Side   domain.Side
	Action L2Action
	Bids   []L2PriceLevel // populated for snapshots
	Asks   []L2PriceLevel // populated for snapshots
	Level  L2PriceLevel   // populated for incremental updates
}

// TradeData reports one execution.
type TradeData struct {
	Symbol   domain.SymbolID
	Price    domain.Price
	Quantity domain.Quantity
	TradeID  uint64
}

// SymbolStatusData reports a symbol trading-state transition.
type SymbolStatusData struct {
	Symbol domain.SymbolID
	State  domain.SymbolState
}

// Message is one published market-data update. Exactly one of the Data
// fields is populated, matching Type.
type Message struct {
	Type      MessageType
	Symbol    domain.SymbolID
	Sequence  uint64
	Timestamp time.Time

	Level1 Level1Data
	Level2 Level2Data
	Trade  TradeData
	Status SymbolStatusData
}
