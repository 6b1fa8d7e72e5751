package mqttbus

import "encoding/json"

// RXTimes carries an RF event's three clock readings: software, hardware
// and hi-resolution hardware timestamps, all anchor-local.
type RXTimes struct {
	SW float64 `json:"sw"`
	HW float64 `json:"hw"`
	HI float64 `json:"hi"`
}

// RFEvent is the anchor-to-server payload published on RFTopic. Frame
// and FInfo are hex-encoded: Frame decodes with internal/tail, FInfo
// with internal/rfmodel.DecodeTimestampInfo.
type RFEvent struct {
	Anchor string  `json:"ANCHOR"`
	Dir    string  `json:"DIR"`
	Times  RXTimes `json:"TIMES"`
	Frame  string  `json:"FRAME"`
	FInfo  string  `json:"FINFO"`
}

// DirRX and DirTX are the two values RFEvent.Dir takes.
const (
	DirRX = "RX"
	DirTX = "TX"
)

// EncodeRFEvent marshals an RFEvent to its wire JSON form.
func EncodeRFEvent(e RFEvent) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeRFEvent unmarshals an RFEvent from its wire JSON form.
func DecodeRFEvent(data []byte) (RFEvent, error) {
	var e RFEvent
	err := json.Unmarshal(data, &e)
	return e, err
}

// CoordMessage is the server-to-subscriber payload published on
// CoordTopic: the tag's raw solved coordinate and its filtered
// counterpart.
type CoordMessage struct {
	Tag      string     `json:"TAG"`
	Name     string     `json:"NAME"`
	Coord    [3]float64 `json:"COORD"`
	Filtered [3]float64 `json:"FILTERED"`
}

// EncodeCoordMessage marshals a CoordMessage to its wire JSON form.
func EncodeCoordMessage(m CoordMessage) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeCoordMessage unmarshals a CoordMessage from its wire JSON form.
func DecodeCoordMessage(data []byte) (CoordMessage, error) {
	var m CoordMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
