package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkConfig holds the Postmark email gateway configuration.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL"`
}

// PostmarkGateway sends email through Postmark's transactional API.
type PostmarkGateway struct {
	client *postmark.Client
	from   string
}

// NewPostmarkGateway creates a Postmark-backed email gateway. All
// configuration is required; failing fast here beats a broken service
// discovering it mid-delivery.
func NewPostmarkGateway(cfg PostmarkConfig) (*PostmarkGateway, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: ServerToken is required", ErrInvalidConfig)
	}
	if cfg.AccountToken == "" {
		return nil, fmt.Errorf("%w: AccountToken is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}

	return &PostmarkGateway{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:   cfg.SenderEmail,
	}, nil
}

// Name implements Gateway.
func (g *PostmarkGateway) Name() string {
	return "postmark"
}

// Send implements Gateway. Open and click tracking feed the status
// webhooks that the ingestion surface normalizes.
func (g *PostmarkGateway) Send(ctx context.Context, recipient, subject, body string) (Receipt, error) {
	resp, err := g.client.SendEmail(ctx, postmark.Email{
		From:       g.from,
		To:         recipient,
		Subject:    subject,
		HTMLBody:   body,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return Receipt{}, errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return Receipt{}, errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}

	return Receipt{Provider: g.Name(), MessageID: resp.MessageID}, nil
}
