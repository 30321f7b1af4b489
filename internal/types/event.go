package types

type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventFaucetFunded EventType = "FaucetFunded"
	EventFaucetPayout EventType = "FaucetPayout"
)
