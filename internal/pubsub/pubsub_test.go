package pubsub

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
)

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("ntf_1", nil)
	key, err := PartitionKey("notifications", msg)
	assert.NoError(t, err)
	assert.Equal(t, "ntf_1", key)

	msg.Metadata.Set(MetadataSubscriptionID, "sub_1")
	key, err = PartitionKey("notifications", msg)
	assert.NoError(t, err)
	assert.Equal(t, "sub_1", key)
}
