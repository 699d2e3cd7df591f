package publisher

// Event is a transport-originated notification. The concrete types are
// Connected, Disconnected and Other.
type Event interface {
	isEvent()
}

// Connected reports that a peer connected (BLE central, MQTT broker).
type Connected struct{}

// Disconnected reports that the peer went away.
type Disconnected struct{}

// Other carries any transport event the publisher does not act on.
type Other struct {
	Code int
}

func (Connected) isEvent()    {}
func (Disconnected) isEvent() {}
func (Other) isEvent()        {}
