package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"amli-assistant/internal/domain"
)

const (
	attrEnrollmentNo = "enrollment_no"
	attrPassKey      = "pass_key"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client looks up certificate records in a DynamoDB table partitioned by
// enrollment number. The pass key is matched by a filter expression so it
// never leaves the table.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// Search returns every record for the enrollment number whose pass key matches.
func (c *Client) Search(ctx context.Context, enrollmentNo, passKey string) ([]domain.Document, error) {
	if strings.TrimSpace(enrollmentNo) == "" {
		return nil, errors.New("repository: Search: enrollment number is required")
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("#enrollment = :enrollment"),
		FilterExpression:       aws.String("#pass = :pass"),
		// Placeholders keep the key names out of the expression strings.
		ExpressionAttributeNames: map[string]string{
			"#enrollment": attrEnrollmentNo,
			"#pass":       attrPassKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":enrollment": &types.AttributeValueMemberS{Value: enrollmentNo},
			":pass":       &types.AttributeValueMemberS{Value: passKey},
		},
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: Search query: %w", err)
	}

	docs := make([]domain.Document, 0, len(out.Items))
	for _, item := range out.Items {
		doc, err := itemToDocument(item)
		if err != nil {
			return nil, fmt.Errorf("repository: Search unmarshal: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// itemToDocument converts a DynamoDB attribute map to a Document.
func itemToDocument(item map[string]types.AttributeValue) (domain.Document, error) {
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Document{}, err
	}
	course, _ := strAttr(item, "course")    // allow empty
	status, _ := strAttr(item, "status")    // allow empty
	fileURL, _ := strAttr(item, "file_url") // allow empty

	fields := make(map[string]any, len(item))
	for k, v := range item {
		if k == attrPassKey {
			continue
		}
		if val, ok := plainValue(v); ok {
			fields[k] = val
		}
	}

	return domain.Document{
		Name:    name,
		Course:  course,
		Status:  status,
		FileURL: fileURL,
		Fields:  fields,
	}, nil
}

// plainValue maps scalar attribute values to JSON-friendly Go values.
func plainValue(v types.AttributeValue) (any, bool) {
	switch tv := v.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, true
	case *types.AttributeValueMemberN:
		if f, err := strconv.ParseFloat(tv.Value, 64); err == nil {
			return f, true
		}
		return tv.Value, true
	case *types.AttributeValueMemberBOOL:
		return tv.Value, true
	default:
		return nil, false
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
