package dynamo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/farmgate/farmgate-api/internal/domain"
)

// FarmerRepo provides typed DynamoDB operations for the farmers table.
type FarmerRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewFarmerRepo(client *dynamodb.Client, tableName string) *FarmerRepo {
	return &FarmerRepo{client: client, tableName: tableName}
}

// Create writes a new farmer item. Fails with ErrConflict when an item with
// the same id already exists.
func (r *FarmerRepo) Create(ctx context.Context, f *domain.Farmer) error {
	item, err := attributevalue.MarshalMap(f)
	if err != nil {
		return fmt.Errorf("marshal farmer: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(farmer_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("farmer already exists: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// Put overwrites the whole farmer item. Used by product mutations that
// rewrite the embedded marketplace document.
func (r *FarmerRepo) Put(ctx context.Context, f *domain.Farmer) error {
	item, err := attributevalue.MarshalMap(f)
	if err != nil {
		return fmt.Errorf("marshal farmer: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *FarmerRepo) Get(ctx context.Context, farmerID string) (*domain.Farmer, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("farmer_id", farmerID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("farmer not found: %w", domain.ErrNotFound)
	}
	var f domain.Farmer
	if err := attributevalue.UnmarshalMap(out.Item, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FarmerRepo) GetByPhone(ctx context.Context, phone string) (*domain.Farmer, error) {
	return r.queryGSI(ctx, "phone-index", "phone", phone)
}

func (r *FarmerRepo) GetByEmail(ctx context.Context, email string) (*domain.Farmer, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *FarmerRepo) Update(ctx context.Context, farmerID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("farmer_id", farmerID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// SetRefreshToken unconditionally overwrites the farmer's refresh-token
// slot. The overwrite is what invalidates every previously issued refresh
// token for this account.
func (r *FarmerRepo) SetRefreshToken(ctx context.Context, farmerID, token string) error {
	return r.Update(ctx, farmerID, map[string]interface{}{fieldRefreshToken: token})
}

// RotateRefreshToken swaps the slot from presented to next as a single
// conditional write. When the slot no longer holds presented (replayed token,
// lost race, or prior logout) the condition fails and ErrTokenReused is
// returned. DynamoDB evaluates the condition and the update atomically, so at
// most one caller per account can win a rotation.
func (r *FarmerRepo) RotateRefreshToken(ctx context.Context, farmerID, presented, next string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("farmer_id", farmerID),
		UpdateExpression:    aws.String("SET #rt = :next, #ua = :now"),
		ConditionExpression: aws.String("#rt = :presented"),
		ExpressionAttributeNames: map[string]string{
			"#rt": fieldRefreshToken,
			"#ua": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":next":      &types.AttributeValueMemberS{Value: next},
			":presented": &types.AttributeValueMemberS{Value: presented},
			":now":       &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("presented token does not match the current slot: %w", domain.ErrTokenReused)
		}
		return err
	}
	return nil
}

// ClearRefreshToken empties the slot on logout. A later rotation attempt
// with any old token then fails its condition check.
func (r *FarmerRepo) ClearRefreshToken(ctx context.Context, farmerID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("farmer_id", farmerID),
		UpdateExpression: aws.String("REMOVE #rt SET #ua = :now"),
		ExpressionAttributeNames: map[string]string{
			"#rt": fieldRefreshToken,
			"#ua": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	return err
}

// ScanSellers returns a page of farmers with seller mode enabled.
// cursor is a base64-encoded farmer_id used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *FarmerRepo) ScanSellers(ctx context.Context, limit int32, cursor string) ([]domain.Farmer, string, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("marketplace.is_seller = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
		Limit: aws.Int32(limit),
	}
	if cursor != "" {
		farmerID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("farmer_id", farmerID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var farmers []domain.Farmer
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &farmers); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["farmer_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return farmers, nextCursor, nil
}

func encodeCursor(farmerID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(farmerID))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *FarmerRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.Farmer, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("farmer not found: %w", domain.ErrNotFound)
	}
	var f domain.Farmer
	if err := attributevalue.UnmarshalMap(out.Items[0], &f); err != nil {
		return nil, err
	}
	return &f, nil
}
