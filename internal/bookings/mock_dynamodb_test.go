package bookings

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory DynamoDB that understands the handful of
// condition expressions the stores issue. Items live in a nested map:
// table -> pkValue -> item. The "fingerprints" table is keyed by fingerprint,
// every other table by booking_id.
type mockDynamo struct {
	mu          sync.Mutex
	tables      map[string]map[string]map[string]types.AttributeValue
	transactErr error // returned instead of running TransactWriteItems
	commitErr   error // returned after TransactWriteItems has applied
	calls       int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (m *mockDynamo) ensureTable(tbl string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[tbl]
}

// keyAttr is the partition key name per table.
func keyAttr(tbl string) string {
	if tbl == "fingerprints" {
		return "fingerprint"
	}
	return "booking_id"
}

func pkOf(tbl string, item map[string]types.AttributeValue) (string, error) {
	if v, ok := item[keyAttr(tbl)].(*types.AttributeValueMemberS); ok {
		return v.Value, nil
	}
	return "", errors.New("no primary key attribute")
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := pkOf(*params.TableName, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.ensureTable(*params.TableName)[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	cp := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		cp[k] = v
	}
	return &dyn.GetItemOutput{Item: cp}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := types.Update{
		TableName:                 params.TableName,
		Key:                       params.Key,
		ConditionExpression:       params.ConditionExpression,
		ExpressionAttributeValues: params.ExpressionAttributeValues,
	}
	if !m.updateOK(u) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	m.applyUpdate(u)
	return &dyn.UpdateItemOutput{}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.transactErr != nil {
		return nil, m.transactErr
	}
	// First pass: verify condition expressions
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			p := it.Put
			pk, err := pkOf(*p.TableName, p.Item)
			if err != nil {
				return nil, err
			}
			if p.ConditionExpression != nil {
				if _, exists := m.ensureTable(*p.TableName)[pk]; exists {
					return nil, &types.TransactionCanceledException{}
				}
			}
		case it.Update != nil:
			if !m.updateOK(*it.Update) {
				return nil, &types.TransactionCanceledException{}
			}
		case it.Delete != nil:
			d := it.Delete
			pk, _ := pkOf(*d.TableName, d.Key)
			if cur, ok := m.ensureTable(*d.TableName)[pk]; ok {
				want := strAttr(d.ExpressionAttributeValues, ":bid")
				if strAttr(cur, "booking_id") != want {
					return nil, &types.TransactionCanceledException{}
				}
			}
		}
	}
	// Second pass: apply
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			pk, _ := pkOf(*it.Put.TableName, it.Put.Item)
			m.ensureTable(*it.Put.TableName)[pk] = it.Put.Item
		case it.Update != nil:
			m.applyUpdate(*it.Update)
		case it.Delete != nil:
			pk, _ := pkOf(*it.Delete.TableName, it.Delete.Key)
			delete(m.ensureTable(*it.Delete.TableName), pk)
		}
	}
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// updateOK checks "#s = :expected" against the stored status.
func (m *mockDynamo) updateOK(u types.Update) bool {
	pk, err := pkOf(*u.TableName, u.Key)
	if err != nil {
		return false
	}
	item, ok := m.ensureTable(*u.TableName)[pk]
	if !ok {
		return false
	}
	if u.ConditionExpression != nil && *u.ConditionExpression == "#s = :expected" {
		return strAttr(item, "status") == strAttr(u.ExpressionAttributeValues, ":expected")
	}
	return true
}

func (m *mockDynamo) applyUpdate(u types.Update) {
	pk, _ := pkOf(*u.TableName, u.Key)
	item := m.ensureTable(*u.TableName)[pk]
	if v, ok := u.ExpressionAttributeValues[":new"]; ok {
		item["status"] = v
	}
	if v, ok := u.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
}
