package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-verify-nosql/internal/domain"
)

// verificationAPI is the subset of *dynamodb.Client used by VerificationRepo.
type verificationAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// VerificationRepo stores verification codes.
// PK: id. The expires attribute (Unix seconds) is the table TTL attribute.
type VerificationRepo struct {
	client    verificationAPI
	tableName string
}

func NewVerificationRepo(client verificationAPI, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Put writes the code only if no item with the same id exists. TTL eviction is
// driven by the expires attribute, so ttl itself is not sent.
func (r *VerificationRepo) Put(ctx context.Context, v *domain.VerificationCode, _ time.Duration) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldID},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("verification code id taken: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// DeleteAndReturn deletes the item and returns its prior attributes in the same
// request, so concurrent callers can never both observe the record.
func (r *VerificationRepo) DeleteAndReturn(ctx context.Context, id string) (*domain.VerificationCode, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          strKey(fieldID, id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, err
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}
	var v domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Attributes, &v); err != nil {
		return nil, fmt.Errorf("unmarshal verification code: %w", err)
	}
	return &v, nil
}
