package types

import "encoding/json"

// MessageId globally identifies a broadcast under the assumption that a
// NodeId is not reused across restarts (spec open issue, see DESIGN.md).
type MessageId struct {
	Origin NodeId
	Seqno  uint64
}

func (id MessageId) String() string {
	return id.Origin.String() + "#" + itoa(id.Seqno)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Payload is the capability required of application data carried by a
// broadcast. The engine stores it, never interprets it.
type Payload interface {
	// Encode returns the wire representation of the payload.
	Encode() ([]byte, error)
}

// BytesPayload is the default Payload implementation for callers who only
// ever deal in raw bytes, mirroring the teacher's byte-oriented
// types.DataHolder.Content field.
type BytesPayload []byte

// Encode implements Payload.
func (b BytesPayload) Encode() ([]byte, error) {
	return b, nil
}

// Message is a single broadcast: a unique id plus opaque content.
type Message struct {
	ID      MessageId
	Content []byte
}

// wireMessage is Message's JSON-serializable shadow, used because
// MessageId nests a NodeId with an unexported internal shape in stricter
// variants; kept explicit here so future fields don't silently change the
// wire format.
type wireMessage struct {
	OriginAddress Address `json:"origin_address"`
	OriginLocalID uint64  `json:"origin_local_id"`
	Seqno         uint64  `json:"seqno"`
	Content       []byte  `json:"content"`
}

// MarshalJSON implements json.Marshaler with a stable field layout.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		OriginAddress: m.ID.Origin.Address,
		OriginLocalID: m.ID.Origin.LocalID,
		Seqno:         m.ID.Seqno,
		Content:       m.Content,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.ID = MessageId{
		Origin: NodeId{Address: w.OriginAddress, LocalID: w.OriginLocalID},
		Seqno:  w.Seqno,
	}
	m.Content = w.Content
	return nil
}
