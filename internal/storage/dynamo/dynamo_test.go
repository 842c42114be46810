package dynamo

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type fakeAPI struct {
	item      map[string]types.AttributeValue
	updates   []*sdk.UpdateItemInput
	gets      []*sdk.GetItemInput
	updateErr error
}

func (f *fakeAPI) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	return &sdk.GetItemOutput{Item: f.item}, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &sdk.UpdateItemOutput{}, nil
}

func keyOf(t *testing.T, in map[string]types.AttributeValue) string {
	t.Helper()
	s, ok := in["email"].(*types.AttributeValueMemberS)
	if !ok {
		t.Fatalf("key has no string email attribute: %#v", in)
	}
	return s.Value
}

func TestSetContactField(t *testing.T) {
	api := &fakeAPI{}
	store := New(api, "users")

	if err := store.SetContactField(context.Background(), "alice@example.com", "bob", "bob@example.com"); err != nil {
		t.Fatalf("SetContactField failed: %v", err)
	}
	if len(api.updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(api.updates))
	}

	ensure, set := api.updates[0], api.updates[1]
	if got := aws.ToString(ensure.UpdateExpression); got != "SET #emails = if_not_exists(#emails, :empty)" {
		t.Errorf("ensure expression = %q", got)
	}
	if got := aws.ToString(set.UpdateExpression); got != "SET #emails.#k = :v" {
		t.Errorf("set expression = %q", got)
	}
	if set.ExpressionAttributeNames["#k"] != "bob" {
		t.Errorf("#k = %q, want bob", set.ExpressionAttributeNames["#k"])
	}
	if v, ok := set.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS); !ok || v.Value != "bob@example.com" {
		t.Errorf(":v = %#v", set.ExpressionAttributeValues[":v"])
	}
	if keyOf(t, set.Key) != "alice@example.com" || aws.ToString(set.TableName) != "users" {
		t.Errorf("wrong target: %s in %s", keyOf(t, set.Key), aws.ToString(set.TableName))
	}
}

func TestDeleteContactField(t *testing.T) {
	api := &fakeAPI{}
	store := New(api, "users")

	if err := store.DeleteContactField(context.Background(), "alice@example.com", "bob"); err != nil {
		t.Fatalf("DeleteContactField failed: %v", err)
	}
	last := api.updates[len(api.updates)-1]
	if got := aws.ToString(last.UpdateExpression); got != "REMOVE #emails.#k" {
		t.Errorf("expression = %q", got)
	}
	if last.ExpressionAttributeNames["#k"] != "bob" {
		t.Errorf("#k = %q", last.ExpressionAttributeNames["#k"])
	}
}

func TestGetUserRecord(t *testing.T) {
	item, err := attributevalue.MarshalMap(document{
		Email:    "alice@example.com",
		Username: "alice",
		Emails:   map[string]string{"zed": "zed@example.com", "amy": "amy@example.com"},
	})
	if err != nil {
		t.Fatalf("MarshalMap failed: %v", err)
	}
	api := &fakeAPI{item: item}

	rec, err := New(api, "users").GetUserRecord(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserRecord failed: %v", err)
	}
	if rec.Username != "alice" {
		t.Errorf("username = %q", rec.Username)
	}
	if got := rec.ContactEmails(); !slices.Equal(got, []string{"amy@example.com", "zed@example.com"}) {
		t.Errorf("emails = %v, want sorted by key", got)
	}
	if !aws.ToBool(api.gets[0].ConsistentRead) {
		t.Error("expected a consistent read")
	}
}

func TestGetUserRecordMissing(t *testing.T) {
	rec, err := New(&fakeAPI{}, "users").GetUserRecord(context.Background(), "nobody@example.com")
	if err != nil || rec != nil {
		t.Errorf("got %+v, %v; want nil, nil", rec, err)
	}
}

func TestUpdateErrorIsWrapped(t *testing.T) {
	boom := errors.New("throttled")
	store := New(&fakeAPI{updateErr: boom}, "users")

	err := store.SetContactField(context.Background(), "alice@example.com", "bob", "bob@example.com")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapping %v", err, boom)
	}
}

func TestCreateUserRecord(t *testing.T) {
	api := &fakeAPI{}
	if err := New(api, "users").CreateUserRecord(context.Background(), "alice@example.com", "alice"); err != nil {
		t.Fatalf("CreateUserRecord failed: %v", err)
	}
	in := api.updates[0]
	if v, ok := in.ExpressionAttributeValues[":username"].(*types.AttributeValueMemberS); !ok || v.Value != "alice" {
		t.Errorf(":username = %#v", in.ExpressionAttributeValues[":username"])
	}
}
