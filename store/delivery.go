package store

// DeliveryKind tells an unprompted announcement from a reply to a command.
type DeliveryKind string

const (
	DeliveryKindAnnouncement DeliveryKind = "announcement"
	DeliveryKindQuery        DeliveryKind = "query"
)

// Delivery records one timetable message sent to a chat.
type Delivery struct {
	ID     int64
	ChatID int64
	// Date is the timetable date the message describes, formatted as YYYY-MM-DD.
	Date string
	Kind DeliveryKind
	// ContentHash identifies the message text, so a changed timetable can be told apart.
	ContentHash string
	MessageID   int
	SentTs      int64
}

type FindDelivery struct {
	ChatID *int64
	Date   *string
	Kind   *DeliveryKind
	Limit  *int
}

type DeleteDelivery struct {
	// SentBefore removes deliveries sent before this unix timestamp.
	SentBefore int64
}
