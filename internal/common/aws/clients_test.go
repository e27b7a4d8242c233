package aws

import (
	"context"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClients(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	clients, err := NewClients(context.Background(), "eu-west-1")
	require.NoError(t, err)
	assert.NotNil(t, clients.SES)
	assert.NotNil(t, clients.SNS)
}

func TestFromConfig(t *testing.T) {
	clients := FromConfig(sdkaws.Config{Region: "us-east-1"})
	assert.NotNil(t, clients.SES)
	assert.NotNil(t, clients.SNS)
}
