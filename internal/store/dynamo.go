package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/capitalize-ai/powerlunch/internal/model"
)

const (
	// Maximum number of actions in a single TransactWriteItems call.
	maxTransactItems = 100

	// Maximum number of keys in a single BatchGetItem call.
	maxBatchGetKeys = 100

	maxUnprocessedRetries = 5

	attrPK = "pk"
	attrSK = "sk"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DynamoStore keeps every conference collection in a single table keyed by
// pk = conferences/{conferenceId}/{collection} and sk = document id.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoClient creates a DynamoDB client from the default AWS config chain.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewDynamoStore creates a store backed by the given table.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func key(conferenceID, collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: ConferencePath(conferenceID, collection)},
		attrSK: &types.AttributeValueMemberS{Value: id},
	}
}

// PendingRegistrations implements Store.
func (s *DynamoStore) PendingRegistrations(ctx context.Context, conferenceID, lunchDate string) ([]model.Registration, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		FilterExpression:       aws.String("#status = :pending AND lunchDate = :date"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":      &types.AttributeValueMemberS{Value: ConferencePath(conferenceID, RegistrationsCollection)},
			":pending": &types.AttributeValueMemberS{Value: string(model.RegistrationPending)},
			":date":    &types.AttributeValueMemberS{Value: lunchDate},
		},
		ConsistentRead: aws.Bool(true),
	}

	var regs []model.Registration
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query registrations: %w", err)
		}
		var batch []model.Registration
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal registrations: %w", err)
		}
		regs = append(regs, batch...)
	}
	return regs, nil
}

// RegistrationsByID implements Store.
func (s *DynamoStore) RegistrationsByID(ctx context.Context, conferenceID string, ids []string) ([]model.Registration, error) {
	found := make(map[string]model.Registration, len(ids))

	for start := 0; start < len(ids); start += maxBatchGetKeys {
		end := start + maxBatchGetKeys
		if end > len(ids) {
			end = len(ids)
		}

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, key(conferenceID, RegistrationsCollection, id))
		}

		request := map[string]types.KeysAndAttributes{
			s.table: {Keys: keys, ConsistentRead: aws.Bool(true)},
		}
		for attempt := 0; len(request) > 0; attempt++ {
			if attempt > maxUnprocessedRetries {
				return nil, fmt.Errorf("failed to read registrations: unprocessed keys remain after %d attempts", attempt)
			}
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("failed to read registrations: %w", err)
			}
			var batch []model.Registration
			if err := attributevalue.UnmarshalListOfMaps(out.Responses[s.table], &batch); err != nil {
				return nil, fmt.Errorf("failed to unmarshal registrations: %w", err)
			}
			for _, r := range batch {
				found[r.ID] = r
			}
			request = out.UnprocessedKeys
		}
	}

	regs := make([]model.Registration, 0, len(found))
	for _, id := range ids {
		if r, ok := found[id]; ok {
			regs = append(regs, r)
		}
	}
	return regs, nil
}

// Group implements Store.
func (s *DynamoStore) Group(ctx context.Context, conferenceID, groupID string) (*model.Group, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(conferenceID, GroupsCollection, groupID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if out.Item == nil {
		return nil, ErrGroupNotFound
	}

	var g model.Group
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal group: %w", err)
	}
	return &g, nil
}

// NewGroupID implements Store.
func (s *DynamoStore) NewGroupID() string {
	return newGroupID()
}

// Commit implements Store. The batch becomes one TransactWriteItems call in
// which every registration update is conditioned on the registration still
// being pending for the same lunch date.
func (s *DynamoStore) Commit(ctx context.Context, conferenceID string, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if batch.Len() > maxTransactItems {
		return fmt.Errorf("%w: %d operations, limit %d", ErrBatchTooLarge, batch.Len(), maxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, batch.Len())

	for _, g := range batch.Groups() {
		item, err := attributevalue.MarshalMap(g)
		if err != nil {
			return fmt.Errorf("failed to marshal group: %w", err)
		}
		for k, v := range key(conferenceID, GroupsCollection, g.ID) {
			item[k] = v
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.table),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			},
		})
	}

	for _, t := range batch.Transitions() {
		updatedAt, err := attributevalue.Marshal(t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to marshal timestamp: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(s.table),
				Key:                 key(conferenceID, RegistrationsCollection, t.RegistrationID),
				UpdateExpression:    aws.String("SET #status = :matched, groupId = :gid, updatedAt = :now"),
				ConditionExpression: aws.String("attribute_exists(pk) AND #status = :pending AND lunchDate = :date"),
				ExpressionAttributeNames: map[string]string{
					"#status": "status",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":matched": &types.AttributeValueMemberS{Value: string(model.RegistrationMatched)},
					":pending": &types.AttributeValueMemberS{Value: string(model.RegistrationPending)},
					":gid":     &types.AttributeValueMemberS{Value: t.GroupID},
					":date":    &types.AttributeValueMemberS{Value: t.LunchDate},
					":now":     updatedAt,
				},
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems:      items,
		ClientRequestToken: aws.String(uuid.NewString()),
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return fmt.Errorf("%w: %v", ErrPreconditionFailed, err)
				}
			}
		}
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *DynamoStore) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
