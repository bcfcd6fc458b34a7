// internal/common/aws/sns.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSClient is the SMS channel for notification delivery. All messages go
// out with the configured sender ID so recipients see a consistent origin.
type SNSClient struct {
	client   *sns.Client
	senderID string
}

func NewSNSClient(ctx context.Context, region, senderID string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), senderID: senderID}, nil
}

// Publish sends a single SMS, stamping the sender ID unless the caller
// already set one.
func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	if s.senderID != "" {
		if input.MessageAttributes == nil {
			input.MessageAttributes = map[string]snstypes.MessageAttributeValue{}
		}
		if _, ok := input.MessageAttributes["AWS.SNS.SMS.SenderID"]; !ok {
			input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			}
		}
	}
	return s.client.Publish(ctx, input)
}
