package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/jolly-booking-intake/internal/aws"
	"github.com/imrishuroy/jolly-booking-intake/internal/idempotency"
	"github.com/imrishuroy/jolly-booking-intake/internal/validation"
)

// DynamoStore encapsulates operations on the bookings table. Fingerprint
// uniqueness is enforced by a claim row in a second table that is written in
// the same transaction as the booking.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	claims    *idempotency.Store
	clock     *Clock
	newID     func() string
}

// NewDynamoStore creates a new bookings Store.
func NewDynamoStore(client aws.DynamoDBAPI, tableName string, claims *idempotency.Store) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		claims:    claims,
		clock:     NewClock(time.Now),
		newID:     newID,
	}
}

// Put atomically creates:
//   - the fingerprint claim (ConditionExpression attribute_not_exists(fingerprint))
//   - the booking row (ConditionExpression attribute_not_exists(booking_id))
//
// A cancelled transaction whose claim belongs to another booking is a duplicate.
func (s *DynamoStore) Put(ctx context.Context, b validation.ValidatedBooking) (*Record, error) {
	rec := newRecord(b, s.newID(), s.clock.Now())

	claimItem, err := s.claims.ClaimItem(rec.Fingerprint, rec.ID, rec.ReceivedAt)
	if err != nil {
		return nil, err
	}
	bookingMap, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal booking: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			claimItem,
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                bookingMap,
					ConditionExpression: awsString("attribute_not_exists(booking_id)"),
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, input)
	if err == nil {
		return rec, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// the commit may have landed before the caller gave up
		if s.committed(ctx, rec) {
			return rec, nil
		}
		return nil, fmt.Errorf("transact write: %w", err)
	}
	if !isConditionalFailure(err) {
		return nil, fmt.Errorf("transact write: %w", err)
	}
	claim, getErr := s.claims.Get(ctx, rec.Fingerprint)
	if getErr != nil {
		return nil, fmt.Errorf("transaction canceled, claim lookup failed: %w", errors.Join(err, getErr))
	}
	if claim != nil && claim.BookingID != rec.ID {
		return nil, &DuplicateError{ExistingID: claim.BookingID}
	}
	// claim released between the write and the read; caller may retry
	return nil, fmt.Errorf("transaction canceled: %w", err)
}

// claimCheckTimeout bounds the read that resolves an abandoned transaction.
const claimCheckTimeout = time.Second

// committed reports whether rec's claim was written despite the transaction
// call failing on the caller's context.
func (s *DynamoStore) committed(ctx context.Context, rec *Record) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), claimCheckTimeout)
	defer cancel()
	claim, err := s.claims.Get(ctx, rec.Fingerprint)
	return err == nil && claim != nil && claim.BookingID == rec.ID
}

// Get fetches a booking by booking_id.
func (s *DynamoStore) Get(ctx context.Context, id string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            s.key(id),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var r Record
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal booking: %w", err)
	}
	return &r, nil
}

// SetStatus conditionally moves a booking from its current status to `to`.
// Cancelling also releases the fingerprint claim in the same transaction.
func (s *DynamoStore) SetStatus(ctx context.Context, id string, to Status) (*Record, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, to) {
		return nil, &InvalidTransitionError{From: cur.Status, To: to}
	}

	now := s.clock.Now()
	update := types.Update{
		TableName:                &s.tableName,
		Key:                      s.key(id),
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ConditionExpression:      awsString("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: string(to)},
			":expected": &types.AttributeValueMemberS{Value: string(cur.Status)},
			":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
	}

	if to == StatusCancelled {
		_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Update: &update},
				s.claims.ReleaseItem(cur.Fingerprint, id),
			},
		})
	} else {
		_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
			TableName:                 update.TableName,
			Key:                       update.Key,
			UpdateExpression:          update.UpdateExpression,
			ConditionExpression:       update.ConditionExpression,
			ExpressionAttributeNames:  update.ExpressionAttributeNames,
			ExpressionAttributeValues: update.ExpressionAttributeValues,
		})
	}
	if err != nil {
		if isConditionalFailure(err) {
			// a concurrent operator changed the status first
			latest, getErr := s.Get(ctx, id)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &InvalidTransitionError{From: latest.Status, To: to}
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	cur.Status = to
	cur.UpdatedAt = now
	return cur, nil
}

// isConditionalFailure matches both the typed exceptions and the raw API
// error codes some endpoints (LocalStack) surface instead.
func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	var tce *types.TransactionCanceledException
	if errors.As(err, &ccf) || errors.As(err, &tce) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ConditionalCheckFailedException", "TransactionCanceledException":
			return true
		}
	}
	return false
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"booking_id": &types.AttributeValueMemberS{Value: id},
	}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
