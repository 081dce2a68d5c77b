package kafka

import "time"

// Config holds Kafka producer configuration
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		ClientID:     "asrs-service",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
	}
}

// Topics contains the Kafka topics this service writes to
var Topics = struct {
	FulfillmentEvents string
	InventoryEvents   string
	RobotEvents       string
}{
	FulfillmentEvents: "asrs.fulfillment.events",
	InventoryEvents:   "asrs.inventory.events",
	RobotEvents:       "asrs.robot.events",
}
