package factory

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/logging"
	"github.com/go-logr/logr"

	"github.com/monx-observability/fleet-telemetry/internal/config"
	"github.com/monx-observability/fleet-telemetry/internal/log"
)

// CreateS3Client builds the client of the dead letter bucket. Static credentials are only
// used when both keys are configured, otherwise the default aws chain applies.
func CreateS3Client(ctx context.Context, conf config.S3) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(conf.Region),
		awsconfig.WithLogger(smithyLogger{log.Component("s3")}),
	}

	if conf.Creds.AccessKeyID != "" && conf.Creds.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.Creds.AccessKeyID, conf.Creds.SecretAccessKey, ""),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for bucket %s: %w", conf.Bucket, err)
	}

	endpoint := normalizeEndpoint(conf.BaseEndpoint)

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = conf.UsePathStyle

		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	}), nil
}

func normalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return ""
	}

	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}

	return "https://" + endpoint
}

// smithyLogger forwards sdk warnings at info level and sdk debug output at V(3).
type smithyLogger struct {
	logger logr.Logger
}

func (l smithyLogger) Logf(classification logging.Classification, format string, v ...interface{}) {
	switch classification {
	case logging.Warn:
		l.logger.Info(fmt.Sprintf(format, v...), "classification", classification)
	case logging.Debug:
		l.logger.V(3).Info(fmt.Sprintf(format, v...))
	}
}
