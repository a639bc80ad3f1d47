package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilProducerIsInert(t *testing.T) {
	var p *Producer

	// broadcast is optional; a nil producer must be safe to call
	p.PublishPostChanged(context.Background(), PostChanged{
		PostID:    "post-1",
		Title:     "Launch reel",
		Action:    "created",
		Timestamp: time.Now(),
	})
	assert.NoError(t, p.Close())
}
