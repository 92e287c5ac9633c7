package kafka

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/taskflow/pkg/events"
)

// partitionKey keeps every event of a project on one partition, so a
// project's changes are evaluated in order.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}
