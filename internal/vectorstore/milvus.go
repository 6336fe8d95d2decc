package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"
)

// Milvus collection fields
const (
	FieldID        = "id"
	FieldDocID     = "doc_id"
	FieldContent   = "content"
	FieldMetadata  = "metadata"
	FieldEmbedding = "embedding"

	maxContentLength = 65535
	ivfNList         = 128
	ivfNProbe        = 16
)

// MilvusStore stores chunk embeddings in one Milvus collection.
type MilvusStore struct {
	client     client.Client
	collection string
	embedder   llm.Embedder
	answerer   *Answerer
	topK       int
	logger     *zap.Logger

	mu    sync.Mutex
	ready bool
}

// DialMilvus connects to a Milvus server.
func DialMilvus(ctx context.Context, address string) (client.Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at %s: %w", address, err)
	}
	return c, nil
}

// NewMilvusStore creates a store over collection. The collection is created
// on first use.
func NewMilvusStore(c client.Client, collection string, embedder llm.Embedder, answerer *Answerer, logger *zap.Logger) (*MilvusStore, error) {
	if c == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	if embedder == nil {
		return nil, fmt.Errorf("an embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MilvusStore{
		client:     c,
		collection: collection,
		embedder:   embedder,
		answerer:   answerer,
		topK:       DefaultTopK,
		logger:     logger,
	}, nil
}

// Add embeds every chunk of doc and inserts them in one call.
func (s *MilvusStore) Add(ctx context.Context, doc Document) error {
	chunks := SplitText(doc.Content, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return &Error{Op: "add", Namespace: s.collection, Message: "empty document " + doc.ID}
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	meta := map[string]any{"data_type": string(doc.DataType)}
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return &Error{Op: "add", Namespace: s.collection, Message: "metadata is not serializable", Cause: err}
	}

	docID := doc.ID
	if docID == "" {
		docID = uuid.NewString()
	}

	ids := make([]string, len(chunks))
	docIDs := make([]string, len(chunks))
	metas := make([][]byte, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return &Error{Op: "add", Namespace: s.collection, Message: "embedding failed", Cause: err}
		}
		ids[i] = uuid.NewString()
		docIDs[i] = docID
		metas[i] = metaJSON
		vectors[i] = vec
	}

	_, err = s.client.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldDocID, docIDs),
		entity.NewColumnVarChar(FieldContent, chunks),
		entity.NewColumnJSONBytes(FieldMetadata, metas),
		entity.NewColumnFloatVector(FieldEmbedding, s.embedder.Dim(), vectors),
	)
	if err != nil {
		return &Error{Op: "add", Namespace: s.collection, Message: "insert failed", Cause: err}
	}
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return &Error{Op: "add", Namespace: s.collection, Message: "flush failed", Cause: err}
	}

	s.logger.Debug("inserted document",
		zap.String("collection", s.collection),
		zap.String("doc", docID),
		zap.Int("chunks", len(chunks)))
	return nil
}

// Query embeds prompt, retrieves the nearest chunks and answers from them.
func (s *MilvusStore) Query(ctx context.Context, prompt string) (string, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return "", err
	}

	vec, err := s.embedder.Embed(ctx, prompt)
	if err != nil {
		return "", &Error{Op: "query", Namespace: s.collection, Message: "embedding failed", Cause: err}
	}

	sp, err := entity.NewIndexIvfFlatSearchParam(ivfNProbe)
	if err != nil {
		return "", &Error{Op: "query", Namespace: s.collection, Message: "invalid search params", Cause: err}
	}

	results, err := s.client.Search(ctx, s.collection, []string{}, "",
		[]string{FieldContent},
		[]entity.Vector{entity.FloatVector(vec)},
		FieldEmbedding, entity.L2, s.topK, sp)
	if err != nil {
		return "", &Error{Op: "query", Namespace: s.collection, Message: "search failed", Cause: err}
	}

	var passages []string
	for _, res := range results {
		for _, field := range res.Fields {
			if field.Name() != FieldContent {
				continue
			}
			if col, ok := field.(*entity.ColumnVarChar); ok {
				passages = append(passages, col.Data()...)
			}
		}
	}

	answer, err := s.answerer.Answer(ctx, prompt, passages)
	if err != nil {
		return "", &Error{Op: "query", Namespace: s.collection, Message: "answer failed", Cause: err}
	}
	return answer, nil
}

// Reset drops the collection; the next Add or Query recreates it.
func (s *MilvusStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return &Error{Op: "reset", Namespace: s.collection, Message: "existence check failed", Cause: err}
	}
	if exists {
		if err := s.client.DropCollection(ctx, s.collection); err != nil {
			return &Error{Op: "reset", Namespace: s.collection, Message: "drop failed", Cause: err}
		}
	}
	s.ready = false
	s.logger.Info("vector collection reset", zap.String("collection", s.collection))
	return nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return &Error{Op: "init", Namespace: s.collection, Message: "existence check failed", Cause: err}
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("creator transcript chunks").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldDocID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(FieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxContentLength)).
			WithField(entity.NewField().WithName(FieldMetadata).WithDataType(entity.FieldTypeJSON)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.embedder.Dim())))

		if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return &Error{Op: "init", Namespace: s.collection, Message: "create collection failed", Cause: err}
		}

		idx, err := entity.NewIndexIvfFlat(entity.L2, ivfNList)
		if err != nil {
			return &Error{Op: "init", Namespace: s.collection, Message: "invalid index params", Cause: err}
		}
		if err := s.client.CreateIndex(ctx, s.collection, FieldEmbedding, idx, false); err != nil {
			return &Error{Op: "init", Namespace: s.collection, Message: "create index failed", Cause: err}
		}
		s.logger.Info("created vector collection", zap.String("collection", s.collection))
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return &Error{Op: "init", Namespace: s.collection, Message: "load collection failed", Cause: err}
	}
	s.ready = true
	return nil
}
