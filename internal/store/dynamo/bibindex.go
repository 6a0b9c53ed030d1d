package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kozaktomas/snaprace/internal/constants"
	"github.com/kozaktomas/snaprace/internal/photo"
)

// PutBibIndex writes the entries sequentially in batches. Unprocessed items
// are reported as an error so the stage is retried as a whole.
func (s *Store) PutBibIndex(ctx context.Context, organizer, eventID, objectKey string, bibs []string) error {
	indexedAt := s.now().UnixMilli()

	for start := 0; start < len(bibs); start += constants.BatchWriteLimit {
		end := min(start+constants.BatchWriteLimit, len(bibs))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, b := range bibs[start:end] {
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{
				Item: map[string]types.AttributeValue{
					"EventBibKey": stringAttr(photo.EventBibKey(organizer, eventID, b)),
					"S3ObjectKey": stringAttr(objectKey),
					"IndexedAt":   numberAttr(indexedAt),
				},
			}})
		}

		out, err := s.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tables.BibIndex: requests},
		})
		if err != nil {
			return fmt.Errorf("writing bib index for %s: %w", objectKey, err)
		}
		if n := len(out.UnprocessedItems[s.tables.BibIndex]); n > 0 {
			return fmt.Errorf("writing bib index for %s: %d of %d items unprocessed", objectKey, n, len(requests))
		}
	}
	return nil
}

func (s *Store) QueryBibIndex(ctx context.Context, organizer, eventID, bib string) ([]string, error) {
	paginator := dynamodb.NewQueryPaginator(s.db, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.BibIndex),
		KeyConditionExpression: aws.String("EventBibKey = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": stringAttr(photo.EventBibKey(organizer, eventID, bib)),
		},
		ProjectionExpression: aws.String("S3ObjectKey"),
	})

	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isTableNotFound(err) {
				return keys, nil
			}
			return nil, fmt.Errorf("querying bib index for %s: %w", bib, err)
		}
		for _, item := range page.Items {
			if v, ok := item["S3ObjectKey"].(*types.AttributeValueMemberS); ok {
				keys = append(keys, v.Value)
			}
		}
	}
	return keys, nil
}
