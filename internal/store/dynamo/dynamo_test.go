package dynamo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/kozaktomas/snaprace/internal/photo"
	"github.com/kozaktomas/snaprace/internal/store"
)

type fakeDB struct {
	mu sync.Mutex

	putErr      error
	getErr      error
	updateErr   error
	describeErr error
	unprocessed int

	getItem  map[string]types.AttributeValue
	updates  []*dynamodb.UpdateItemInput
	batches  []*dynamodb.BatchWriteItemInput
	puts     []*dynamodb.PutItemInput
	pages    [][]map[string]types.AttributeValue
	queryIdx int
}

func (f *fakeDB) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.getItem}, nil
}

func (f *fakeDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	f.puts = append(f.puts, in)
	f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDB) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	f.updates = append(f.updates, in)
	f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDB) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	f.batches = append(f.batches, in)
	f.mu.Unlock()
	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocessed > 0 {
		for table, reqs := range in.RequestItems {
			out.UnprocessedItems = map[string][]types.WriteRequest{table: reqs[:f.unprocessed]}
		}
	}
	return out, nil
}

func (f *fakeDB) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryIdx >= len(f.pages) {
		return &dynamodb.QueryOutput{}, nil
	}
	out := &dynamodb.QueryOutput{Items: f.pages[f.queryIdx]}
	f.queryIdx++
	if f.queryIdx < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"page": stringAttr(fmt.Sprint(f.queryIdx))}
	}
	return out, nil
}

func (f *fakeDB) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func newTestStore(db API) *Store {
	return New(db, Options{
		Tables:      Tables{Photos: "photos", BibIndex: "bibs", Runners: "runners"},
		BibPadWidth: 4,
		Now:         func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	})
}

func TestCreatePhoto_CollisionIsSuccess(t *testing.T) {
	db := &fakeDB{putErr: &types.ConditionalCheckFailedException{Message: aws.String("exists")}}
	s := newTestStore(db)

	created, err := s.CreatePhoto(context.Background(), photo.NewPendingRecord("org", "evt", "k.jpg", time.Now()))
	if err != nil {
		t.Fatalf("CreatePhoto: %v", err)
	}
	if created {
		t.Error("collision should report created=false")
	}
	if got := aws.ToString(db.puts[0].ConditionExpression); got != "attribute_not_exists(S3ObjectKey)" {
		t.Errorf("condition = %q", got)
	}
	if v, ok := db.puts[0].Item["ProcessingStatus"].(*types.AttributeValueMemberS); !ok || v.Value != "PENDING" {
		t.Errorf("status attribute = %#v", db.puts[0].Item["ProcessingStatus"])
	}
}

func TestGetPhoto_MissingTableIsNotFound(t *testing.T) {
	s := newTestStore(&fakeDB{getErr: &types.ResourceNotFoundException{}})

	rec, err := s.GetPhoto(context.Background(), "org", "evt", "k.jpg")
	if err != nil || rec != nil {
		t.Errorf("GetPhoto = (%v, %v), want (nil, nil)", rec, err)
	}
}

func TestGetPhoto_Decodes(t *testing.T) {
	db := &fakeDB{getItem: map[string]types.AttributeValue{
		"EventKey":         stringAttr("ORG#org#EVT#evt"),
		"S3ObjectKey":      stringAttr("k.jpg"),
		"ProcessingStatus": stringAttr("TEXT_DETECTED"),
		"DetectedBibs":     &types.AttributeValueMemberL{Value: []types.AttributeValue{stringAttr("42")}},
		"ImageWidth":       numberAttr(800),
	}}

	rec, err := newTestStore(db).GetPhoto(context.Background(), "org", "evt", "k.jpg")
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if rec.Status != photo.StatusTextDetected || !slices.Equal(rec.DetectedBibs, []string{"42"}) || rec.ImageWidth != 800 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestUpdatePhoto_OnlySuppliedFields(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db)

	err := s.UpdatePhoto(context.Background(), "org", "evt", "k.jpg", photo.NewPatch().WithStatus(photo.StatusCompleted))
	if err != nil {
		t.Fatalf("UpdatePhoto: %v", err)
	}

	names := make([]string, 0)
	for _, n := range db.updates[0].ExpressionAttributeNames {
		names = append(names, n)
	}
	slices.Sort(names)
	if !slices.Equal(names, []string{"ProcessingStatus", "updatedAt"}) {
		t.Errorf("updated attributes = %v", names)
	}
}

func TestPutBibIndex_Batches(t *testing.T) {
	db := &fakeDB{}
	s := newTestStore(db)

	bibs := make([]string, 30)
	for i := range bibs {
		bibs[i] = fmt.Sprint(i + 1)
	}
	if err := s.PutBibIndex(context.Background(), "org", "evt", "k.jpg", bibs); err != nil {
		t.Fatalf("PutBibIndex: %v", err)
	}

	if len(db.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(db.batches))
	}
	if n := len(db.batches[0].RequestItems["bibs"]); n != 25 {
		t.Errorf("first batch = %d items, want 25", n)
	}
	if n := len(db.batches[1].RequestItems["bibs"]); n != 5 {
		t.Errorf("second batch = %d items, want 5", n)
	}
	key := db.batches[0].RequestItems["bibs"][0].PutRequest.Item["EventBibKey"].(*types.AttributeValueMemberS)
	if key.Value != "ORG#org#EVT#evt#BIB#1" {
		t.Errorf("EventBibKey = %q", key.Value)
	}
}

func TestPutBibIndex_UnprocessedIsError(t *testing.T) {
	s := newTestStore(&fakeDB{unprocessed: 1})
	if err := s.PutBibIndex(context.Background(), "org", "evt", "k.jpg", []string{"1", "2"}); err == nil {
		t.Error("expected error for unprocessed items")
	}
}

func TestQueryBibIndex_Paginates(t *testing.T) {
	item := func(k string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{"S3ObjectKey": stringAttr(k)}
	}
	db := &fakeDB{pages: [][]map[string]types.AttributeValue{
		{item("a.jpg"), item("b.jpg")},
		{item("c.jpg")},
	}}

	keys, err := newTestStore(db).QueryBibIndex(context.Background(), "org", "evt", "42")
	if err != nil {
		t.Fatalf("QueryBibIndex: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"a.jpg", "b.jpg", "c.jpg"}) {
		t.Errorf("keys = %v", keys)
	}
}

func TestValidBibs_StripsPadding(t *testing.T) {
	db := &fakeDB{pages: [][]map[string]types.AttributeValue{{
		{"sk": stringAttr("BIB#0042")},
		{"sk": stringAttr("BIB#7")},
		{"sk": stringAttr("META")},
	}}}

	bibs, err := newTestStore(db).ValidBibs(context.Background(), "org", "evt")
	if err != nil {
		t.Fatalf("ValidBibs: %v", err)
	}
	if !slices.Equal(bibs, []string{"42", "7"}) {
		t.Errorf("bibs = %v", bibs)
	}
}

func TestAddPhotoKeys(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantErr  error
		wantFail bool
	}{
		{name: "updated"},
		{name: "missing runner", err: &types.ConditionalCheckFailedException{}, wantErr: store.ErrRunnerNotFound},
		{name: "wrongly typed attribute", err: &smithy.GenericAPIError{Code: "ValidationException"}, wantFail: true},
		{name: "missing table", err: &types.ResourceNotFoundException{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{updateErr: tt.err}
			err := newTestStore(db).AddPhotoKeys(context.Background(), "org", "evt", "42", "k.jpg")
			switch {
			case tt.wantFail:
				if err == nil || errors.Is(err, store.ErrRunnerNotFound) {
					t.Fatalf("AddPhotoKeys error = %v, want a write failure other than not-found", err)
				}
			case !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil):
				t.Fatalf("AddPhotoKeys error = %v, want %v", err, tt.wantErr)
			}

			in := db.updates[0]
			if got := aws.ToString(in.UpdateExpression); got != "ADD PhotoKeys :keys" {
				t.Errorf("update expression = %q", got)
			}
			sk := in.Key["sk"].(*types.AttributeValueMemberS)
			if sk.Value != "BIB#0042" {
				t.Errorf("sk = %q, want padded BIB#0042", sk.Value)
			}
			ss := in.ExpressionAttributeValues[":keys"].(*types.AttributeValueMemberSS)
			if !slices.Equal(ss.Value, []string{"k.jpg"}) {
				t.Errorf("keys = %v", ss.Value)
			}
		})
	}
}

func TestTableExists(t *testing.T) {
	exists, err := newTestStore(&fakeDB{}).TableExists(context.Background())
	if err != nil || !exists {
		t.Errorf("TableExists = (%v, %v), want (true, nil)", exists, err)
	}

	exists, err = newTestStore(&fakeDB{describeErr: &types.ResourceNotFoundException{}}).TableExists(context.Background())
	if err != nil || exists {
		t.Errorf("TableExists = (%v, %v), want (false, nil)", exists, err)
	}

	_, err = newTestStore(&fakeDB{describeErr: errors.New("boom")}).TableExists(context.Background())
	if err == nil {
		t.Error("expected probe error to propagate")
	}

	unconfigured := New(&fakeDB{}, Options{Tables: Tables{Photos: "photos"}})
	if exists, _ := unconfigured.TableExists(context.Background()); exists {
		t.Error("unconfigured roster should not exist")
	}
}
