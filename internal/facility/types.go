// ABOUTME: Sport complex, time slot, review, chat, and support ticket types
// ABOUTME: JSON field names match the content returned by the AI gateway

package facility

// Complex is one bookable sport complex
type Complex struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Sports      []string   `json:"sports"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl"`
	Rating      float64    `json:"rating"`
	Slots       []TimeSlot `json:"availableTimeSlots"`
}

// clone returns a copy that shares nothing mutable with c.
func (c Complex) clone() Complex {
	out := c
	out.Sports = append([]string(nil), c.Sports...)
	out.Slots = append([]TimeSlot(nil), c.Slots...)
	return out
}

// TimeSlot is a bookable hour, e.g. "18:00"
type TimeSlot struct {
	Time     string `json:"time"`
	IsBooked bool   `json:"isBooked"`
}

// Review is a user rating with a comment
type Review struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ChatMessage is a message in a complex's chat room
type ChatMessage struct {
	ID        int64  `json:"id"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ContactMethod is how a support ticket is answered
type ContactMethod string

// Contact methods
const (
	MethodEmail ContactMethod = "Email"
	MethodSMS   ContactMethod = "SMS"
)

// SupportTicket is a message to a complex's staff
type SupportTicket struct {
	Name    string        `json:"name"`
	Contact string        `json:"contact"`
	Subject string        `json:"subject"`
	Message string        `json:"message"`
	Method  ContactMethod `json:"method"`
}
