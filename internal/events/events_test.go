package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicForCountry(t *testing.T) {
	topic, ok := TopicForCountry("PE")
	assert.True(t, ok)
	assert.Equal(t, TopicAppointmentsPE, topic)

	topic, ok = TopicForCountry("CL")
	assert.True(t, ok)
	assert.Equal(t, TopicAppointmentsCL, topic)

	_, ok = TopicForCountry("BR")
	assert.False(t, ok)
}

func TestAllTopics(t *testing.T) {
	topics := AllTopics()
	assert.ElementsMatch(t, []string{TopicAppointmentsPE, TopicAppointmentsCL, TopicAppointmentsCompleted}, topics)
}
