package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/jolly-booking-intake/internal/aws"
)

// Store reads and builds writes for the fingerprint claims table. Writes are
// returned as transaction items so the booking store can commit them
// together with the booking row.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore returns a configured Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// ClaimItem puts a claim only if the fingerprint is free.
func (s *Store) ClaimItem(fingerprint, bookingID string, now time.Time) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(Claim{
		Fingerprint: fingerprint,
		BookingID:   bookingID,
		CreatedAt:   now,
	})
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal claim: %w", err)
	}
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           &s.tableName,
			Item:                item,
			ConditionExpression: awsString("attribute_not_exists(fingerprint)"),
		},
	}, nil
}

// ReleaseItem deletes the claim, guarded so a booking can only release its own.
func (s *Store) ReleaseItem(fingerprint, bookingID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: &s.tableName,
			Key: map[string]types.AttributeValue{
				"fingerprint": &types.AttributeValueMemberS{Value: fingerprint},
			},
			ConditionExpression: awsString("attribute_not_exists(fingerprint) OR booking_id = :bid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":bid": &types.AttributeValueMemberS{Value: bookingID},
			},
		},
	}
}

// Get retrieves a claim by fingerprint. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, fingerprint string) (*Claim, error) {
	input := &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"fingerprint": &types.AttributeValueMemberS{Value: fingerprint},
		},
		ConsistentRead: awsBool(true),
	}
	out, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Claim
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}
	return &c, nil
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
