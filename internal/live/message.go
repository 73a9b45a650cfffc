package live

import "encoding/json"

// Client message types.
const (
	TypeSetFilter    = "set_filter"
	TypeClearFilters = "clear_filters"
	TypeRefresh      = "refresh"
)

// Server message types.
const (
	TypeList  = "list"
	TypeError = "error"
)

// Message is the WebSocket envelope in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SetFilter is the data of a set_filter message.
type SetFilter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListPayload carries one page of the watched view.
type ListPayload struct {
	View string `json:"view"`
	Page any    `json:"page"`
}

// ErrorPayload reports a failed load or a rejected message. The session keeps running.
type ErrorPayload struct {
	View    string `json:"view"`
	Message string `json:"message"`
}

func newMessage(typ string, payload any) Message {
	data, err := json.Marshal(payload)
	if err != nil {
		data, _ = json.Marshal(ErrorPayload{Message: err.Error()})
		typ = TypeError
	}
	return Message{Type: typ, Data: data}
}
