// Package aws builds the SES and SNS clients used for lead notifications.
package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Clients shares one loaded AWS configuration between SES and SNS.
type Clients struct {
	SES *ses.Client
	SNS *sns.Client
}

// NewClients resolves credentials the default way (env, shared config, role).
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return FromConfig(cfg), nil
}

func FromConfig(cfg sdkaws.Config) *Clients {
	return &Clients{
		SES: ses.NewFromConfig(cfg),
		SNS: sns.NewFromConfig(cfg),
	}
}
