package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"storycanvas/application/ports"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/palette"
	pkgerrors "storycanvas/pkg/errors"
)

// CanvasRepository implements ports.CanvasRepository on a single DynamoDB
// table. Each canvas is one item: PK groups all canvases of a story, SK
// is the canvas key, and the graph itself is stored as serialized JSON
// rather than per-node items because snapshots are always read and
// written whole.
type CanvasRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewCanvasRepository creates a new CanvasRepository
func NewCanvasRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.CanvasRepository {
	return &CanvasRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// canvasItem represents the DynamoDB item structure for a canvas
type canvasItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	StoryID     string `dynamodbav:"StoryID"`
	CanvasID    string `dynamodbav:"CanvasID"`
	Nodes       string `dynamodbav:"Nodes"`
	Connections string `dynamodbav:"Connections"`
	Palette     string `dynamodbav:"Palette,omitempty"`
	Version     int64  `dynamodbav:"Version"`
	UpdatedAt   int64  `dynamodbav:"UpdatedAt"`
}

func storyPK(storyID string) string {
	return fmt.Sprintf("STORY#%s", storyID)
}

func canvasSK(canvasID aggregates.CanvasID) string {
	return fmt.Sprintf("CANVAS#%s", canvasID.String())
}

// Save persists a snapshot, replacing any previous version
func (r *CanvasRepository) Save(ctx context.Context, snapshot *ports.GraphSnapshot) error {
	nodesJSON, err := json.Marshal(snapshot.Nodes)
	if err != nil {
		return pkgerrors.NewInternalError("failed to serialize nodes").WithCause(err)
	}
	connsJSON, err := json.Marshal(snapshot.Connections)
	if err != nil {
		return pkgerrors.NewInternalError("failed to serialize connections").WithCause(err)
	}

	item := canvasItem{
		PK:          storyPK(snapshot.StoryID),
		SK:          canvasSK(snapshot.CanvasID),
		EntityType:  "CANVAS",
		StoryID:     snapshot.StoryID,
		CanvasID:    snapshot.CanvasID.String(),
		Nodes:       string(nodesJSON),
		Connections: string(connsJSON),
		Version:     snapshot.Version,
		UpdatedAt:   snapshot.UpdatedAt,
	}
	if snapshot.Palette != nil {
		paletteJSON, err := json.Marshal(snapshot.Palette)
		if err != nil {
			return pkgerrors.NewInternalError("failed to serialize palette").WithCause(err)
		}
		item.Palette = string(paletteJSON)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal canvas", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("save canvas", err)
	}

	r.logger.Debug("canvas saved",
		zap.String("story_id", snapshot.StoryID),
		zap.String("canvas_id", snapshot.CanvasID.String()),
		zap.Int("nodes", len(snapshot.Nodes)),
		zap.Int("connections", len(snapshot.Connections)),
	)
	return nil
}

// Load retrieves the snapshot for one canvas
func (r *CanvasRepository) Load(ctx context.Context, storyID string, canvasID aggregates.CanvasID) (*ports.GraphSnapshot, error) {
	key, err := attributevalue.MarshalMap(map[string]string{
		"PK": storyPK(storyID),
		"SK": canvasSK(canvasID),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("marshal canvas key", err)
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("load canvas", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("canvas " + canvasID.String())
	}

	var item canvasItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal canvas", err)
	}
	return itemToSnapshot(&item)
}

// Delete removes a canvas snapshot
func (r *CanvasRepository) Delete(ctx context.Context, storyID string, canvasID aggregates.CanvasID) error {
	key, err := attributevalue.MarshalMap(map[string]string{
		"PK": storyPK(storyID),
		"SK": canvasSK(canvasID),
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal canvas key", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete canvas", err)
	}
	return nil
}

// ListByStory returns every canvas id saved under a story
func (r *CanvasRepository) ListByStory(ctx context.Context, storyID string) ([]aggregates.CanvasID, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(storyPK(storyID))).
		And(expression.Key("SK").BeginsWith("CANVAS#"))
	proj := expression.NamesList(expression.Name("CanvasID"))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyCond).
		WithProjection(proj).
		Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build list expression", err)
	}

	var ids []aggregates.CanvasID
	var lastKey map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("list canvases", err)
		}
		for _, raw := range result.Items {
			var item struct {
				CanvasID string `dynamodbav:"CanvasID"`
			}
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, pkgerrors.NewDatabaseError("unmarshal canvas id", err)
			}
			ids = append(ids, aggregates.CanvasID(item.CanvasID))
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}
	return ids, nil
}

func itemToSnapshot(item *canvasItem) (*ports.GraphSnapshot, error) {
	var nodes []entities.Node
	if err := json.Unmarshal([]byte(item.Nodes), &nodes); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt nodes payload").WithCause(err)
	}
	var connections []entities.Connection
	if err := json.Unmarshal([]byte(item.Connections), &connections); err != nil {
		return nil, pkgerrors.NewInternalError("corrupt connections payload").WithCause(err)
	}
	var pal *palette.Palette
	if item.Palette != "" {
		pal = &palette.Palette{}
		if err := json.Unmarshal([]byte(item.Palette), pal); err != nil {
			return nil, pkgerrors.NewInternalError("corrupt palette payload").WithCause(err)
		}
	}
	return &ports.GraphSnapshot{
		StoryID:     item.StoryID,
		CanvasID:    aggregates.CanvasID(item.CanvasID),
		Nodes:       nodes,
		Connections: connections,
		Palette:     pal,
		Version:     item.Version,
		UpdatedAt:   item.UpdatedAt,
	}, nil
}
