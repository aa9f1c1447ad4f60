package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warkadguard/riskwatch/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleAssessment() models.RiskAssessment {
	return models.RiskAssessment{
		ID:             "a-1",
		Location:       "Adama",
		Crop:           "maize",
		Symptom:        "holes in leaves",
		Severity:       models.SeverityMany,
		Score:          0.9,
		Level:          models.RiskHigh,
		Pest:           "Fall Armyworm",
		Recommendation: models.Recommendation{English: "Spray", Amharic: "ይርጩ"},
		LastUpdated:    time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC),
	}
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	require.NoError(t, p.Publish(context.Background(), "run-1", sampleAssessment()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "Adama", string(msg.Key))
	assert.Equal(t, sampleAssessment().LastUpdated, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, "run-1", string(msg.Headers[0].Value))
	assert.Equal(t, "high", string(msg.Headers[1].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 0.9, decoded["risk_score"])
	assert.Equal(t, "high", decoded["risk_level"])
	assert.Equal(t, "Fall Armyworm", decoded["pest"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriteError(t *testing.T) {
	p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), "run-1", sampleAssessment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
