package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// PushSender delivers notifications to external services (ntfy, slack,
// email gateways) through shoutrrr URLs.
type PushSender struct {
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewPushSender validates the service URLs and builds a sender. An empty
// URL list is an error; callers should skip construction instead.
func NewPushSender(urls []string, timeout time.Duration) (*PushSender, error) {
	if len(urls) == 0 {
		return nil, errors.New("no push URLs configured")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to create push sender: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PushSender{sender: sender, timeout: timeout}, nil
}

// Send pushes one message to every configured service and returns the
// first delivery error, if any.
func (p *PushSender) Send(title, message string) error {
	params := &types.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	p.sender.Timeout = p.timeout
	for _, err := range p.sender.Send(message, params) {
		if err != nil {
			return fmt.Errorf("push delivery failed: %w", err)
		}
	}
	return nil
}
