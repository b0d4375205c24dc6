package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/DeafMist/uk-job-dashboard/internal/config"
	"github.com/DeafMist/uk-job-dashboard/internal/logger"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/store"
)

// API is the subset of the DynamoDB client used by Client.
type API interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Client scans one DynamoDB table.
type Client struct {
	api      API
	table    string
	keyAttr  string
	pageSize int32
	log      *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithPageSize sets the Limit sent with every Scan request. Zero leaves it to DynamoDB.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = int32(n)
		}
	}
}

// WithKeyAttribute names the attribute copied into Job.ID.
func WithKeyAttribute(name string) Option {
	return func(c *Client) {
		c.keyAttr = name
	}
}

// LoadAWSConfig resolves AWS settings through the SDK default chain, overriding
// region and credentials when they are configured explicitly.
func LoadAWSConfig(ctx context.Context, cfg config.DynamoDB) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "eu-west-2"
	}
	return awsCfg, nil
}

// NewFromConfig builds a Client backed by the real DynamoDB service.
func NewFromConfig(awsCfg aws.Config, cfg config.DynamoDB, log *slog.Logger, opts ...Option) *Client {
	var ddbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		ddbOpts = append(ddbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	api := dynamodb.NewFromConfig(awsCfg, ddbOpts...)

	opts = append([]Option{WithKeyAttribute(cfg.KeyAttribute)}, opts...)
	return New(api, cfg.Table, log, opts...)
}

// New wraps an existing DynamoDB API implementation.
func New(api API, table string, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		api:   api,
		table: table,
		log:   logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the table in logs and errors.
func (c *Client) Name() string {
	return "dynamodb:" + c.table
}

// ScanPage issues one Scan request starting after cursor.
func (c *Client) ScanPage(ctx context.Context, cursor store.Cursor) (store.Page, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(c.table),
	}
	if c.pageSize > 0 {
		input.Limit = aws.Int32(c.pageSize)
	}
	if cursor != nil {
		startKey, ok := cursor.(map[string]types.AttributeValue)
		if !ok {
			return store.Page{}, fmt.Errorf("unexpected cursor type %T", cursor)
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := c.api.Scan(ctx, input)
	if err != nil {
		return store.Page{}, c.classify(err)
	}

	jobs := make([]models.Job, 0, len(out.Items))
	for i, item := range out.Items {
		var decoded map[string]any
		if err := attributevalue.UnmarshalMap(item, &decoded); err != nil {
			return store.Page{}, fmt.Errorf("decode item %d: %w", i, err)
		}
		jobs = append(jobs, store.JobFromItem(decoded, c.keyAttr))
	}

	page := store.Page{Jobs: jobs}
	if len(out.LastEvaluatedKey) > 0 {
		page.Next = out.LastEvaluatedKey
	}

	c.log.Debug("scanned dynamodb page",
		slog.String("table", c.table),
		slog.Int("items", len(jobs)),
		slog.Bool("more", page.Next != nil),
	)
	return page, nil
}

// Ping checks that the table exists and is readable.
func (c *Client) Ping(ctx context.Context) error {
	out, err := c.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.table),
	})
	if err != nil {
		return c.classify(err)
	}
	if out.Table == nil {
		return store.Unavailable(c.Name(), errors.New("describe table returned no table"))
	}

	switch out.Table.TableStatus {
	case types.TableStatusActive, types.TableStatusUpdating:
		return nil
	default:
		return store.Unavailable(c.Name(), fmt.Errorf("table status %s", out.Table.TableStatus))
	}
}

var unavailableCodes = map[string]struct{}{
	"AccessDeniedException":               {},
	"UnrecognizedClientException":         {},
	"InvalidSignatureException":           {},
	"ExpiredTokenException":               {},
	"MissingAuthenticationTokenException": {},
	"IncompleteSignature":                 {},
	"ResourceNotFoundException":           {},
}

// classify marks connectivity and auth failures as unavailable; everything else
// is returned wrapped so the fetcher reports it as a scan failure.
func (c *Client) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return store.Unavailable(c.Name(), err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := unavailableCodes[apiErr.ErrorCode()]; ok {
			return store.Unavailable(c.Name(), err)
		}
	}

	return fmt.Errorf("dynamodb request: %w", err)
}
