package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSConfig holds the AWS SNS gateway configuration, shared by the SMS
// and push gateways. Static credentials are optional; when absent the
// default AWS credential chain applies.
type SNSConfig struct {
	Region          string `env:"AWS_SNS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// snsPublisher is the slice of the SNS client the gateways use,
// extracted for testability.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewSNSClient creates an SNS client from the configuration.
func NewSNSClient(ctx context.Context, cfg SNSConfig) (*sns.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return sns.NewFromConfig(awsCfg), nil
}

// SNSSMSGateway sends SMS messages via AWS SNS. The recipient is an
// E.164 phone number; the subject is ignored because SMS has no
// subject line.
type SNSSMSGateway struct {
	client snsPublisher
}

// NewSNSSMSGateway creates an SNS-backed SMS gateway.
func NewSNSSMSGateway(client *sns.Client) (*SNSSMSGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: sns client is required", ErrInvalidConfig)
	}
	return &SNSSMSGateway{client: client}, nil
}

// Name implements Gateway.
func (g *SNSSMSGateway) Name() string {
	return "sns"
}

// Send implements Gateway.
func (g *SNSSMSGateway) Send(ctx context.Context, recipient, _, body string) (Receipt, error) {
	out, err := g.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(recipient),
		Message:     aws.String(body),
	})
	if err != nil {
		return Receipt{}, errors.Join(ErrSendFailed, err)
	}

	return Receipt{Provider: g.Name(), MessageID: aws.ToString(out.MessageId)}, nil
}

// SNSPushGateway sends push notifications via AWS SNS platform
// endpoints. The recipient is the device's platform endpoint ARN.
type SNSPushGateway struct {
	client snsPublisher
}

// NewSNSPushGateway creates an SNS-backed push gateway.
func NewSNSPushGateway(client *sns.Client) (*SNSPushGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: sns client is required", ErrInvalidConfig)
	}
	return &SNSPushGateway{client: client}, nil
}

// Name implements Gateway.
func (g *SNSPushGateway) Name() string {
	return "sns"
}

// Send implements Gateway.
func (g *SNSPushGateway) Send(ctx context.Context, recipient, subject, body string) (Receipt, error) {
	message := body
	if subject != "" {
		message = subject + "\n" + body
	}

	out, err := g.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(recipient),
		Message:   aws.String(message),
	})
	if err != nil {
		return Receipt{}, errors.Join(ErrSendFailed, err)
	}

	return Receipt{Provider: g.Name(), MessageID: aws.ToString(out.MessageId)}, nil
}
