package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verify-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTable struct{ mock.Mock }

func (m *mockTable) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, m.Called(ctx, in).Error(0)
}

func (m *mockTable) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	return &dynamodb.TransactWriteItemsOutput{}, m.Called(ctx, in).Error(0)
}

func (m *mockTable) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockTable) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, m.Called(ctx, in).Error(0)
}

func (m *mockTable) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

// --- users ---

func TestUserRepo_Put_ReservesEmailInSameTransaction(t *testing.T) {
	api := &mockTable{}
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		if len(in.TransactItems) != 2 {
			return false
		}
		user, claim := in.TransactItems[0].Put, in.TransactItems[1].Put
		uid, _ := user.Item["user_id"].(*types.AttributeValueMemberS)
		cid, _ := claim.Item["user_id"].(*types.AttributeValueMemberS)
		owner, _ := claim.Item["owner_id"].(*types.AttributeValueMemberS)
		_, claimHasEmail := claim.Item["email"]
		return aws.ToString(user.ConditionExpression) == "attribute_not_exists(#uid)" &&
			aws.ToString(claim.ConditionExpression) == "attribute_not_exists(#uid)" &&
			uid != nil && uid.Value == "u1" &&
			cid != nil && cid.Value == "email#alice@example.com" &&
			owner != nil && owner.Value == "u1" &&
			!claimHasEmail
	})).Return(nil)

	err := NewUserRepo(api, "users").Put(context.Background(), &domain.User{UserID: "u1", Email: "alice@example.com"})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestUserRepo_Put_TakenEmailIsConflict(t *testing.T) {
	api := &mockTable{}
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	})

	err := NewUserRepo(api, "users").Put(context.Background(), &domain.User{UserID: "u2", Email: "alice@example.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_Put_OtherCancellationPassesThrough(t *testing.T) {
	api := &mockTable{}
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(&types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}},
	})

	err := NewUserRepo(api, "users").Put(context.Background(), &domain.User{UserID: "u2", Email: "alice@example.com"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConflict))
}

func TestUserRepo_Get_Missing(t *testing.T) {
	api := &mockTable{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewUserRepo(api, "users").Get(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_GetByEmail_UsesIndex(t *testing.T) {
	api := &mockTable{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		v, _ := in.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
		return aws.ToString(in.IndexName) == emailIndex && v != nil && v.Value == "alice@example.com"
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{{
		"user_id":  &types.AttributeValueMemberS{Value: "u1"},
		"email":    &types.AttributeValueMemberS{Value: "alice@example.com"},
		"verified": &types.AttributeValueMemberBOOL{Value: true},
	}}}, nil)

	u, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.True(t, u.Verified)
}

func TestUserRepo_GetByEmail_NoMatch(t *testing.T) {
	api := &mockTable{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	_, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepo_MarkVerified(t *testing.T) {
	api := &mockTable{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		found := false
		for _, name := range in.ExpressionAttributeNames {
			if name == fieldVerified {
				found = true
			}
		}
		return found && aws.ToString(in.ConditionExpression) == "attribute_exists(user_id)"
	})).Return(nil)

	require.NoError(t, NewUserRepo(api, "users").MarkVerified(context.Background(), "u1"))
	api.AssertExpectations(t)
}

func TestUserRepo_Update_MissingUser(t *testing.T) {
	api := &mockTable{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(&types.ConditionalCheckFailedException{})

	err := NewUserRepo(api, "users").SetPasswordHash(context.Background(), "ghost", "hash")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- sessions ---

func TestSessionRepo_DisableByUser(t *testing.T) {
	api := &mockTable{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == userIDIndex
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"session_id": &types.AttributeValueMemberS{Value: "s1"}},
		{"session_id": &types.AttributeValueMemberS{Value: "s2"}},
	}}, nil)
	disabled := []string{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		in := args.Get(1).(*dynamodb.UpdateItemInput)
		disabled = append(disabled, in.Key[fieldSessionID].(*types.AttributeValueMemberS).Value)
	}).Return(nil)

	require.NoError(t, NewSessionRepo(api, "sessions").DisableByUser(context.Background(), "u1"))
	assert.Equal(t, []string{"s1", "s2"}, disabled)
}

func TestSessionRepo_DisableByUser_ContinuesAfterFailure(t *testing.T) {
	api := &mockTable{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		{"session_id": &types.AttributeValueMemberS{Value: "s1"}},
		{"session_id": &types.AttributeValueMemberS{Value: "s2"}},
	}}, nil)
	boom := errors.New("throttled")
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(boom).Once()
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil).Once()

	err := NewSessionRepo(api, "sessions").DisableByUser(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	api.AssertNumberOfCalls(t, "UpdateItem", 2)
}

func TestSessionRepo_Get(t *testing.T) {
	api := &mockTable{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: "s1"},
		"user_id":    &types.AttributeValueMemberS{Value: "u1"},
		"enable":     &types.AttributeValueMemberBOOL{Value: true},
	}}, nil)

	s, err := NewSessionRepo(api, "sessions").Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, &domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, s)
}
