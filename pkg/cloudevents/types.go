package cloudevents

import "time"

// Event types published by the fulfillment service
const (
	PlanGenerated = "asrs.fulfillment.plan-generated"
	PlanExecuted  = "asrs.fulfillment.plan-executed"

	StockPicked = "asrs.inventory.stock-picked"
	StockPlaced = "asrs.inventory.stock-placed"

	CommandScheduled  = "asrs.robot.command-scheduled"
	CommandCompleted  = "asrs.robot.command-completed"
	CommandFailed     = "asrs.robot.command-failed"
	CommandCancelled  = "asrs.robot.command-cancelled"
	RobotStatusChange = "asrs.robot.status-changed"
)

// SourceFulfillment is the CloudEvents source of this service
const SourceFulfillment = "/asrs/fulfillment-service"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype,omitempty"`
	Data            interface{}            `json:"data,omitempty"`
	CorrelationID   string                 `json:"wmscorrelationid,omitempty"`
	WorkflowID      string                 `json:"wmsworkflowid,omitempty"`
	TraceParent     string                 `json:"traceparent,omitempty"`
	Extensions      map[string]interface{} `json:"extensions,omitempty"`
}
