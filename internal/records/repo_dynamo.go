package records

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoRepo.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepo stores Records in a table whose partition key is the string attribute "key".
type DynamoRepo struct {
	Client DynamoAPI
	Table  string
	now    func() time.Time
}

func NewDynamoRepo(client DynamoAPI, table string) *DynamoRepo {
	return &DynamoRepo{
		Client: client,
		Table:  table,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *DynamoRepo) List(ctx context.Context) ([]Record, error) {
	var out []Record
	paginator := dynamodb.NewScanPaginator(r.Client, &dynamodb.ScanInput{TableName: aws.String(r.Table)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan table=%s: %w", r.Table, err)
		}
		var recs []Record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("dynamodb unmarshal: %w", err)
		}
		out = append(out, recs...)
	}
	sortRecords(out)
	return out, nil
}

func (r *DynamoRepo) Get(ctx context.Context, key string) (Record, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.Table),
		Key:       map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: key}},
	})
	if err != nil {
		return Record{}, fmt.Errorf("dynamodb get key=%s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return Record{}, ErrNotFound
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Record{}, fmt.Errorf("dynamodb unmarshal: %w", err)
	}
	return rec, nil
}

// Upsert writes every attribute and sets created_at only when the item is new.
func (r *DynamoRepo) Upsert(ctx context.Context, rec Record) error {
	now := r.now()
	rec.UpdatedAt = now
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("dynamodb marshal: %w", err)
	}
	delete(item, "key")
	created := item["created_at"]
	delete(item, "created_at")
	if rec.CreatedAt.IsZero() {
		if created, err = attributevalue.Marshal(now); err != nil {
			return fmt.Errorf("dynamodb marshal: %w", err)
		}
	}

	attrs := make([]string, 0, len(item))
	for name := range item {
		attrs = append(attrs, name)
	}
	sort.Strings(attrs)

	names := map[string]string{"#created_at": "created_at"}
	values := map[string]types.AttributeValue{":created_at": created}
	sets := make([]string, 0, len(attrs)+1)
	for _, name := range attrs {
		names["#"+name] = name
		values[":"+name] = item[name]
		sets = append(sets, fmt.Sprintf("#%s = :%s", name, name))
	}
	sets = append(sets, "#created_at = if_not_exists(#created_at, :created_at)")

	_, err = r.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.Table),
		Key:                       map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: rec.Key}},
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("dynamodb update key=%s: %w", rec.Key, err)
	}
	return nil
}
