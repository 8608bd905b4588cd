package queue

import (
	"errors"
	"testing"

	"github.com/ghaleb-d/sol-transfer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestEventNotifier_PublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := NewEventNotifier(pub)

	notifier.HandleEvent(domain.TransferSubmitted{
		TransferID: "t-9",
		To:         "4Nd1mT9C89PxyA2rF5KJbfYyjpTHZf1dbpVqv9d5Dx6z",
		Amount:     1000,
		Signature:  "sig",
	})

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, EventSubject, pub.subjects[0])

	event, err := domain.DeserializeEvent(pub.payloads[0])
	require.NoError(t, err)
	submitted, ok := event.(domain.TransferSubmitted)
	require.True(t, ok)
	assert.Equal(t, "t-9", submitted.TransferID)
	assert.Equal(t, uint64(1000), submitted.Amount)
}

func TestEventNotifier_PublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}
	notifier := NewEventNotifier(pub)

	assert.NotPanics(t, func() {
		notifier.HandleEvent(domain.TransferRejected{TransferID: "t-10", Reason: "invalid address format"})
	})
	assert.Empty(t, pub.payloads)
}

func TestNewNATSClient_Unreachable(t *testing.T) {
	_, err := NewNATSClient("nats://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}
