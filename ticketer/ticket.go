package ticketer

import "time"

const (
	StatusOpen = "open"
)

type PromptItem struct {
	Message   string    `json:"message" bson:"message"`
	Role      string    `json:"role" bson:"role"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

type TicketMetadata struct {
	LowConfidenceReason string `json:"lowConfidenceReason,omitempty" bson:"lowConfidenceReason,omitempty"`
	CreatedBySystem     bool   `json:"createdBySystem" bson:"createdBySystem"`
}

type Ticket struct {
	TicketId      string         `json:"ticketId" bson:"ticketId"`
	UserId        string         `json:"userId" bson:"userId"`
	PromptHistory []PromptItem   `json:"promptHistory" bson:"promptHistory"`
	Status        string         `json:"status" bson:"status"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updatedAt"`
	Metadata      TicketMetadata `json:"metadata" bson:"metadata"`
}
