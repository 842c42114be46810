// Package dynamo implements the user document store on Amazon DynamoDB.
//
// Each user document is one item keyed by the "email" attribute. The emails
// mapping is a DynamoDB map attribute, so single fields are set and removed
// with document-path update expressions (emails.#k). DynamoDB does not keep
// map insertion order; GetUserRecord returns fields sorted by key.
package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mmynk/emergencyclick/internal/models"
	"github.com/mmynk/emergencyclick/internal/storage"
)

// Compile-time interface check.
var _ storage.DocumentStore = (*Store)(nil)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
}

// Config holds the connection settings.
type Config struct {
	// Table is the DynamoDB table holding the "users" collection.
	Table string
	// Region is the AWS region (e.g., "ap-southeast-1").
	Region string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
	// AccessKeyID and SecretAccessKey select static credentials. When empty
	// the default credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
}

// document is the stored item shape.
type document struct {
	Email    string            `dynamodbav:"email"`
	Username string            `dynamodbav:"username,omitempty"`
	Emails   map[string]string `dynamodbav:"emails"`
}

// Store implements the document store over a DynamoDB table.
type Store struct {
	client API
	table  string
}

// NewClient builds a DynamoDB client from cfg.
func NewClient(ctx context.Context, cfg Config) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// New wraps an existing client.
func New(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// Open connects using cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(client, cfg.Table), nil
}

func (s *Store) key(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"email": &types.AttributeValueMemberS{Value: email},
	}
}

// CreateUserRecord writes the username and makes sure the emails map exists.
func (s *Store) CreateUserRecord(ctx context.Context, email, username string) error {
	_, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.key(email),
		UpdateExpression: aws.String("SET #username = :username, #emails = if_not_exists(#emails, :empty)"),
		ExpressionAttributeNames: map[string]string{
			"#username": "username",
			"#emails":   "emails",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":username": &types.AttributeValueMemberS{Value: username},
			":empty":    &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetUserRecord reads a user's document. A missing item yields nil, nil.
func (s *Store) GetUserRecord(ctx context.Context, email string) (*models.UserRecord, error) {
	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var doc document
	if err := attributevalue.UnmarshalMap(out.Item, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	keys := make([]string, 0, len(doc.Emails))
	for k := range doc.Emails {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	record := &models.UserRecord{Email: doc.Email, Username: doc.Username}
	for _, k := range keys {
		record.Emails = append(record.Emails, models.ContactEntry{Key: k, Email: doc.Emails[k]})
	}
	return record, nil
}

// SetContactField upserts emails.<key>. A document path update fails when
// the parent map is missing, so the map is ensured first.
func (s *Store) SetContactField(ctx context.Context, userEmail, key, email string) error {
	if err := s.ensureEmailsMap(ctx, userEmail); err != nil {
		return err
	}
	_, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.key(userEmail),
		UpdateExpression: aws.String("SET #emails.#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#emails": "emails",
			"#k":      key,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to set emails.%s: %w", key, err)
	}
	return nil
}

// DeleteContactField removes emails.<key>.
func (s *Store) DeleteContactField(ctx context.Context, userEmail, key string) error {
	if err := s.ensureEmailsMap(ctx, userEmail); err != nil {
		return err
	}
	_, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.key(userEmail),
		UpdateExpression: aws.String("REMOVE #emails.#k"),
		ExpressionAttributeNames: map[string]string{
			"#emails": "emails",
			"#k":      key,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete emails.%s: %w", key, err)
	}
	return nil
}

func (s *Store) ensureEmailsMap(ctx context.Context, userEmail string) error {
	_, err := s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      s.key(userEmail),
		UpdateExpression:         aws.String("SET #emails = if_not_exists(#emails, :empty)"),
		ExpressionAttributeNames: map[string]string{"#emails": "emails"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create emails map: %w", err)
	}
	return nil
}
