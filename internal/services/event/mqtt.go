package event

import (
	"strings"

	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
)

// DefaultTopic publishes each kind on its own topic.
const DefaultTopic = "event/prediction/{kind}"

type publisher interface {
	PublishJSON(topic string, v any) error
	Connected() bool
}

// MQTTSink publishes events as JSON on a per-kind topic.
type MQTTSink struct {
	pub  publisher
	tmpl string
}

func NewMQTTSink(pub publisher, topicTmpl string) *MQTTSink {
	if strings.TrimSpace(topicTmpl) == "" {
		topicTmpl = DefaultTopic
	}
	return &MQTTSink{pub: pub, tmpl: topicTmpl}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Topic(kind string) string {
	return strings.ReplaceAll(s.tmpl, "{kind}", kind)
}

func (s *MQTTSink) Record(evt messages.PredictionEvent) error {
	return s.pub.PublishJSON(s.Topic(evt.Kind), evt)
}

func (s *MQTTSink) Connected() bool {
	return s != nil && s.pub.Connected()
}
