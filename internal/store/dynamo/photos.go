package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kozaktomas/snaprace/internal/photo"
)

func photoKey(organizer, eventID, objectKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"EventKey":    stringAttr(photo.EventKey(organizer, eventID)),
		"S3ObjectKey": stringAttr(objectKey),
	}
}

func (s *Store) GetPhoto(ctx context.Context, organizer, eventID, objectKey string) (*photo.Record, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Photos),
		Key:       photoKey(organizer, eventID, objectKey),
	})
	if err != nil {
		if isTableNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting photo %s: %w", objectKey, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var rec photo.Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("decoding photo %s: %w", objectKey, err)
	}
	return &rec, nil
}

func (s *Store) CreatePhoto(ctx context.Context, rec photo.Record) (bool, error) {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("encoding photo %s: %w", rec.ObjectKey, err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Photos),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(S3ObjectKey)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("creating photo %s: %w", rec.ObjectKey, err)
	}
	return true, nil
}

func (s *Store) UpdatePhoto(ctx context.Context, organizer, eventID, objectKey string, patch *photo.Patch) error {
	update := expression.Set(expression.Name("updatedAt"), expression.Value(s.now().UnixMilli()))
	if patch != nil {
		if patch.Status != nil {
			update = update.Set(expression.Name("ProcessingStatus"), expression.Value(string(*patch.Status)))
		}
		if patch.DetectedBibs != nil {
			update = update.Set(expression.Name("DetectedBibs"), expression.Value(*patch.DetectedBibs))
		}
		if patch.FaceIDs != nil {
			update = update.Set(expression.Name("FaceIds"), expression.Value(*patch.FaceIDs))
		}
		if patch.ImageWidth != nil {
			update = update.Set(expression.Name("ImageWidth"), expression.Value(*patch.ImageWidth))
		}
		if patch.ImageHeight != nil {
			update = update.Set(expression.Name("ImageHeight"), expression.Value(*patch.ImageHeight))
		}
		if patch.IsGroupPhoto != nil {
			update = update.Set(expression.Name("isGroupPhoto"), expression.Value(*patch.IsGroupPhoto))
		}
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("building update for %s: %w", objectKey, err)
	}

	_, err = s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tables.Photos),
		Key:                       photoKey(organizer, eventID, objectKey),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("updating photo %s: %w", objectKey, err)
	}
	return nil
}
