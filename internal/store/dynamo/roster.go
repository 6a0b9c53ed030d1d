package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kozaktomas/snaprace/internal/bib"
	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
)

func (s *Store) runnerKey(organizer, eventID, bibNumber string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": stringAttr(photo.EventKey(organizer, eventID)),
		"sk": stringAttr(photo.RunnerSortKey(bib.PadBibNumber(bibNumber, s.bibPadWidth))),
	}
}

func (s *Store) TableExists(ctx context.Context) (bool, error) {
	if s.tables.Runners == "" {
		return false, nil
	}
	_, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tables.Runners),
	})
	if err != nil {
		if isTableNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("describing table %s: %w", s.tables.Runners, err)
	}
	return true, nil
}

func (s *Store) ValidBibs(ctx context.Context, organizer, eventID string) ([]string, error) {
	if s.tables.Runners == "" {
		return nil, nil
	}

	paginator := dynamodb.NewQueryPaginator(s.db, &dynamodb.QueryInput{
		TableName:              aws.String(s.tables.Runners),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(photo.EventKey(organizer, eventID)),
		},
		ProjectionExpression: aws.String("sk"),
	})

	var bibs []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isTableNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("listing roster for %s/%s: %w", organizer, eventID, err)
		}
		for _, item := range page.Items {
			sk, ok := item["sk"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if b, found := strings.CutPrefix(sk.Value, "BIB#"); found && b != "" {
				bibs = append(bibs, bib.NormalizeBibNumber(b))
			}
		}
	}
	return bibs, nil
}

func (s *Store) GetRunner(ctx context.Context, organizer, eventID, bibNumber string) (*photo.Runner, error) {
	if s.tables.Runners == "" {
		return nil, nil
	}
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Runners),
		Key:       s.runnerKey(organizer, eventID, bibNumber),
	})
	if err != nil {
		if isTableNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting runner %s: %w", bibNumber, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var r photo.Runner
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("decoding runner %s: %w", bibNumber, err)
	}
	return &r, nil
}

// AddPhotoKeys uses ADD on a string set so repeated calls are a true union.
func (s *Store) AddPhotoKeys(ctx context.Context, organizer, eventID, bibNumber string, keys ...string) error {
	if s.tables.Runners == "" || len(keys) == 0 {
		return nil
	}

	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tables.Runners),
		Key:                 s.runnerKey(organizer, eventID, bibNumber),
		UpdateExpression:    aws.String("ADD PhotoKeys :keys"),
		ConditionExpression: aws.String("attribute_exists(pk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":keys": &types.AttributeValueMemberSS{Value: keys},
		},
	})
	if err == nil {
		return nil
	}

	switch {
	case isTableNotFound(err):
		return nil
	case isConditionFailed(err):
		return fmt.Errorf("%w: bib %s", store.ErrRunnerNotFound, bibNumber)
	}
	return fmt.Errorf("adding photo keys to runner %s: %w", bibNumber, err)
}

// PutRunner upserts the roster fields and leaves PhotoKeys untouched.
func (s *Store) PutRunner(ctx context.Context, organizer, eventID string, runner photo.Runner) error {
	if s.tables.Runners == "" {
		return fmt.Errorf("putting runner %s: no runners table configured", runner.BibNumber)
	}

	canonical := bib.NormalizeBibNumber(runner.BibNumber)
	update := expression.Set(expression.Name("bib_number"), expression.Value(canonical)).
		Set(expression.Name("event_id"), expression.Value(eventID)).
		Set(expression.Name("organizer_id"), expression.Value(organizer))
	if runner.Name != "" {
		update = update.Set(expression.Name("name"), expression.Value(runner.Name))
	}
	if runner.FinishTimeSec > 0 {
		update = update.Set(expression.Name("finish_time_sec"), expression.Value(runner.FinishTimeSec))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("building runner update for %s: %w", canonical, err)
	}

	_, err = s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tables.Runners),
		Key:                       s.runnerKey(organizer, eventID, canonical),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("putting runner %s: %w", canonical, err)
	}
	return nil
}
