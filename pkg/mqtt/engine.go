package mqtt

// Callbacks are the events an Engine reports back to the bridge
type Callbacks struct {
	OnConnect        func()
	OnConnectFailure func(err error)
	OnConnectionLost func(err error)
	OnMessage        func(topic string, payload []byte)
}

// Engine is the narrow view of an MQTT client the bridge drives.
// Connect is asynchronous: the outcome arrives through OnConnect or
// OnConnectFailure. The engine never reconnects on its own.
type Engine interface {
	SetCallbacks(cb Callbacks)
	Connect()
	Subscribe(topics map[string]byte) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}
