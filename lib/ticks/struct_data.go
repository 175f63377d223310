package ticks

// Data is a consistent snapshot of a Tracker's counter and rates.
type Data struct {
	Channel       Channel `json:"channel"`
	BasePeriodMS  uint32  `json:"basePeriodMs"`
	Initialized   bool    `json:"initialized"`
	Count         uint32  `json:"count"`
	Millis        uint64  `json:"millis"`
	InstantRate   float64 `json:"instantRate"`
	Rate1Period   float64 `json:"rate1"`
	Rate5Periods  float64 `json:"rate5"`
	Rate25Periods float64 `json:"rate25"`
	ShortAdvances uint64  `json:"shortAdvances"`
	LongAdvances  uint64  `json:"longAdvances"`
	ShortWarm     bool    `json:"shortWarm"`
	LongWarm      bool    `json:"longWarm"`
}

// NamedData is a Data snapshot labeled with the name its Tracker was
// configured under.
type NamedData struct {
	Name string `json:"name"`
	Data
}

// Frame is one message of a status stream: a snapshot of every Tracker,
// numbered from 1.
type Frame struct {
	Seq      uint64      `json:"seq"`
	Trackers []NamedData `json:"trackers"`
}
