package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"budgetpal/internal/core"
)

// Message types carried in the AMQP Type property.
const (
	TypeSchedule = "payment.schedule"
	TypeDelete   = "payment.delete"
)

// ScheduleMessage announces a freshly computed schedule for one payment
// definition. Version lets consumers discard stale deliveries.
type ScheduleMessage struct {
	ID              int64           `json:"id"`
	Version         int64           `json:"version"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	Frequency       string          `json:"frequency"`
	DayOfMonth      int             `json:"day_of_month"`
	NextPaymentDate time.Time       `json:"next_payment_date"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       time.Time       `json:"timestamp"`
}

// NewScheduleMessage snapshots p under the given definition id and version.
func NewScheduleMessage(id, version int64, p *core.Payment) *ScheduleMessage {
	return &ScheduleMessage{
		ID:              id,
		Version:         version,
		Name:            p.Name,
		Type:            p.Type().String(),
		Category:        p.Category.String(),
		Frequency:       p.Frequency.String(),
		DayOfMonth:      p.DayOfMonth(),
		NextPaymentDate: p.NextPaymentDate(),
		Amount:          p.Amount,
		Timestamp:       time.Now(),
	}
}

func (m *ScheduleMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ScheduleMessageFromJSON(data []byte) (*ScheduleMessage, error) {
	var msg ScheduleMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage tells consumers a definition no longer exists.
type DeleteMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDeleteMessage(id int64) *DeleteMessage {
	return &DeleteMessage{ID: id, Timestamp: time.Now()}
}

func (m *DeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DeleteMessageFromJSON(data []byte) (*DeleteMessage, error) {
	var msg DeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
