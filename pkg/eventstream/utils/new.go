package eventstreamutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/eventstream"
	"github.com/mnemolabs/mnemo/pkg/eventstream/kafka"
	"github.com/mnemolabs/mnemo/pkg/eventstream/nop"
)

// NewPublisherOpts selects and configures an eventstream provider.
type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *zap.Logger
}

// NewPublisher returns the publisher for the given provider type. An empty
// provider means events are disabled and a no-op publisher is returned.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.ProviderType)
	}
}
