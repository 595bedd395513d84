package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imperialbin/imperial/models"
)

// DynamoStore implements DocumentStore using DynamoDB
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoStore creates a new DynamoDB storage backend
func NewDynamoStore(tableName, region string) (*DynamoStore, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(cfg)

	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}, nil
}

// Insert saves a document. The condition expression makes the put atomic on
// slug uniqueness instead of a read-then-write race.
func (d *DynamoStore) Insert(doc *models.Document) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                documentToItem(doc),
		ConditionExpression: aws.String("attribute_not_exists(slug)"),
	})

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrDuplicateSlug
	}
	return err
}

// Get retrieves a live document by its slug
func (d *DynamoStore) Get(slug string) (*models.Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"slug": &types.AttributeValueMemberS{Value: slug},
		},
	})
	if err != nil {
		return nil, err
	}

	if result.Item == nil {
		return nil, ErrNotFound
	}

	doc := itemToDocument(result.Item)

	// Expired but not yet reaped by the table TTL
	if doc.IsExpired() {
		_ = d.Delete(slug)
		return nil, ErrNotFound
	}

	return doc, nil
}

// ListByCreator returns all documents owned by a creator. The table is
// keyed by slug only, so this walks a filtered scan.
func (d *DynamoStore) ListByCreator(creator string) ([]*models.Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var docs []*models.Document
	var startKey map[string]types.AttributeValue

	for {
		out, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(d.tableName),
			FilterExpression: aws.String("creator = :c"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":c": &types.AttributeValueMemberS{Value: creator},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			docs = append(docs, itemToDocument(item))
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return docs, nil
}

// UpdateContent replaces the stored content of a document
func (d *DynamoStore) UpdateContent(slug, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"slug": &types.AttributeValueMemberS{Value: slug},
		},
		UpdateExpression:    aws.String("SET #content = :c"),
		ConditionExpression: aws.String("attribute_exists(slug)"),
		ExpressionAttributeNames: map[string]string{
			"#content": "content",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: content},
		},
	})

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrNotFound
	}
	return err
}

// Delete removes a document from DynamoDB
func (d *DynamoStore) Delete(slug string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"slug": &types.AttributeValueMemberS{Value: slug},
		},
		ConditionExpression: aws.String("attribute_exists(slug)"),
	})

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ErrNotFound
	}
	return err
}

// DeleteByCreator removes every document owned by a creator
func (d *DynamoStore) DeleteByCreator(creator string) (int, error) {
	docs, err := d.ListByCreator(creator)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if err := d.Delete(doc.Slug); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for DynamoDB
func (d *DynamoStore) Close() error {
	return nil
}

// documentToItem converts a Document to a DynamoDB item
func documentToItem(doc *models.Document) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"slug":           &types.AttributeValueMemberS{Value: doc.Slug},
		"content":        &types.AttributeValueMemberS{Value: doc.Content},
		"creator":        &types.AttributeValueMemberS{Value: doc.Creator},
		"image_embed":    &types.AttributeValueMemberBOOL{Value: doc.ImageEmbed},
		"instant_delete": &types.AttributeValueMemberBOOL{Value: doc.InstantDelete},
		"quality":        &types.AttributeValueMemberN{Value: strconv.Itoa(doc.Quality)},
		"encrypted":      &types.AttributeValueMemberBOOL{Value: doc.Encrypted},
		"created_at":     &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.CreatedAt.Unix(), 10)},
		"expires_at":     &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.ExpiresAt.Unix(), 10)},
		// ttl mirrors expires_at for the table's native expiry reaper
		"ttl": &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.ExpiresAt.Unix(), 10)},
	}

	if doc.EncryptedIV != "" {
		item["encrypted_iv"] = &types.AttributeValueMemberS{Value: doc.EncryptedIV}
	}

	if len(doc.AllowedEditors) > 0 {
		editors := make([]types.AttributeValue, 0, len(doc.AllowedEditors))
		for _, e := range doc.AllowedEditors {
			editors = append(editors, &types.AttributeValueMemberS{Value: e})
		}
		item["allowed_editors"] = &types.AttributeValueMemberL{Value: editors}
	}

	return item
}

// itemToDocument converts a DynamoDB item to a Document model
func itemToDocument(item map[string]types.AttributeValue) *models.Document {
	doc := &models.Document{}

	if slug, ok := item["slug"].(*types.AttributeValueMemberS); ok {
		doc.Slug = slug.Value
	}
	if content, ok := item["content"].(*types.AttributeValueMemberS); ok {
		doc.Content = content.Value
	}
	if creator, ok := item["creator"].(*types.AttributeValueMemberS); ok {
		doc.Creator = creator.Value
	}
	if imageEmbed, ok := item["image_embed"].(*types.AttributeValueMemberBOOL); ok {
		doc.ImageEmbed = imageEmbed.Value
	}
	if instantDelete, ok := item["instant_delete"].(*types.AttributeValueMemberBOOL); ok {
		doc.InstantDelete = instantDelete.Value
	}
	if quality, ok := item["quality"].(*types.AttributeValueMemberN); ok {
		if q, err := strconv.Atoi(quality.Value); err == nil {
			doc.Quality = q
		}
	}
	if encrypted, ok := item["encrypted"].(*types.AttributeValueMemberBOOL); ok {
		doc.Encrypted = encrypted.Value
	}
	if iv, ok := item["encrypted_iv"].(*types.AttributeValueMemberS); ok {
		doc.EncryptedIV = iv.Value
	}
	if editors, ok := item["allowed_editors"].(*types.AttributeValueMemberL); ok {
		for _, e := range editors.Value {
			if s, ok := e.(*types.AttributeValueMemberS); ok {
				doc.AllowedEditors = append(doc.AllowedEditors, s.Value)
			}
		}
	}
	if createdAt, ok := item["created_at"].(*types.AttributeValueMemberN); ok {
		if timestamp, err := strconv.ParseInt(createdAt.Value, 10, 64); err == nil {
			doc.CreatedAt = time.Unix(timestamp, 0)
		}
	}
	if expiresAt, ok := item["expires_at"].(*types.AttributeValueMemberN); ok {
		if timestamp, err := strconv.ParseInt(expiresAt.Value, 10, 64); err == nil {
			doc.ExpiresAt = time.Unix(timestamp, 0)
		}
	}

	return doc
}
