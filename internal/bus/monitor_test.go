package bus

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbodies/catch-api/pkg/models"
)

type fakePublisher struct {
	messages []models.Message
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, msg models.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func TestMonitor_PublishesScopedMessages(t *testing.T) {
	pub := &fakePublisher{}
	jobID := uuid.New()
	m := NewMonitor(pub, jobID)

	ctx := context.Background()
	m.Running(ctx, "Starting moving target query.")
	m.Progress(ctx)("searching skymapper")
	m.Success(ctx, "Task complete.")

	require.Len(t, pub.messages, 3)
	for _, msg := range pub.messages {
		assert.Equal(t, models.JobPrefix(jobID), msg.JobPrefix)
		assert.GreaterOrEqual(t, msg.Elapsed, 0.0)
	}
	assert.Equal(t, models.TaskRunning, pub.messages[0].Status)
	assert.Equal(t, models.TaskRunning, pub.messages[1].Status)
	assert.Equal(t, "searching skymapper", pub.messages[1].Text)
	assert.Equal(t, models.TaskSuccess, pub.messages[2].Status)

	// elapsed is non-decreasing within one invocation
	for i := 1; i < len(pub.messages); i++ {
		assert.GreaterOrEqual(t, pub.messages[i].Elapsed, pub.messages[i-1].Elapsed)
	}
}

func TestMonitor_CloseDropsPublishes(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMonitor(pub, uuid.New())

	m.Close()
	m.Close() // idempotent
	m.Running(context.Background(), "late message")

	assert.Empty(t, pub.messages)
}

func TestMonitor_PublishErrorDoesNotPanic(t *testing.T) {
	pub := &fakePublisher{err: errors.New("stream down")}
	m := NewMonitor(pub, uuid.New())

	assert.NotPanics(t, func() {
		m.Error(context.Background(), "boom")
	})
}

func TestJobPrefix_Format(t *testing.T) {
	prefix := models.JobPrefix(uuid.New())
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), prefix)
}

func TestMessage_Framing(t *testing.T) {
	jobID := uuid.New()
	msg := models.Message{
		JobPrefix: models.JobPrefix(jobID),
		Text:      "Task complete.",
		Elapsed:   1.2,
		Status:    models.TaskSuccess,
	}

	payload, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded models.Message
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, msg, decoded)
	assert.Len(t, decoded.JobPrefix, 8)
}

// Bus.Publish normalizes status "none" to the empty string so the wire
// format omits the field entirely.
func TestMessage_NoneStatusOmitted(t *testing.T) {
	msg := models.Message{JobPrefix: "00112233", Text: "hi"}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "status")
}
