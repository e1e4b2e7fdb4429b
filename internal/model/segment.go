package model

// Segment identifies a market: domestic equities, foreign equities or crypto.
type Segment string

const (
	SegmentUS     Segment = "US"
	SegmentIndia  Segment = "INDIA"
	SegmentCrypto Segment = "CRYPTO"
)

// DefaultSegment is used when a caller does not name one.
const DefaultSegment = SegmentUS
