package dto

// HostEventRequest is the host's lifecycle notification, e.g.
// {"type":"session.deleted","properties":{"info":{"id":"..."}}}.
type HostEventRequest struct {
	Type       string              `json:"type" validate:"required"`
	Properties HostEventProperties `json:"properties"`
}

type HostEventProperties struct {
	Info HostEventInfo `json:"info"`
}

type HostEventInfo struct {
	Id string `json:"id"`
}

type HostEventResponse struct {
	Ended int `json:"ended"`
}
