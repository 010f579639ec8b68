package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	payloadDocID = "doc_id"
	payloadSeq   = "seq"
	scrollPage   = 256
)

// QdrantOptions configures the Qdrant strategy.
type QdrantOptions struct {
	Host       string
	Port       int
	Collection string
	Dimensions int
}

// QdrantIndex delegates storage and search to a Qdrant cosine collection. Document IDs
// are mapped to deterministic UUID point IDs and kept in the payload together with the
// insertion sequence, which restores local tie ordering on results.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string

	mu         sync.RWMutex
	dimensions int
	ready      bool
	nextSeq    uint64
}

// NewQdrantIndex connects to Qdrant. The collection is created on first upsert if missing.
func NewQdrantIndex(ctx context.Context, opts QdrantOptions) (*QdrantIndex, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection is required")
	}
	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  opts.Collection,
		dimensions:  opts.Dimensions,
	}, nil
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}

func pointID(id string) *pb.PointId {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte(id))
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: u.String()}}
}

// syncLocked reads the collection dimension and the next insertion sequence.
// Returns false when the collection does not exist yet.
func (q *QdrantIndex) syncLocked(ctx context.Context) (bool, error) {
	if q.ready {
		return true, nil
	}
	exists, err := q.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: q.collection})
	if err != nil {
		return false, fmt.Errorf("qdrant collection exists: %w", err)
	}
	if !exists.GetResult().GetExists() {
		return false, nil
	}
	info, err := q.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: q.collection})
	if err != nil {
		return false, fmt.Errorf("qdrant collection info: %w", err)
	}
	size := int(info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if q.dimensions > 0 && size > 0 && size != q.dimensions {
		return false, &DimensionMismatchError{Got: size, Want: q.dimensions}
	}
	if size > 0 {
		q.dimensions = size
	}
	points, err := q.scrollAll(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range points {
		if p.seq >= q.nextSeq {
			q.nextSeq = p.seq + 1
		}
	}
	q.ready = true
	return true, nil
}

func (q *QdrantIndex) createLocked(ctx context.Context, dims int) error {
	_, err := q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dims), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	q.dimensions = dims
	q.ready = true
	return nil
}

// Upsert writes the point and waits for it to be applied.
func (q *QdrantIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(vec) == 0 {
		return &DimensionMismatchError{Got: 0, Want: q.dimensions}
	}
	if err := checkDimension(len(vec), q.dimensions); err != nil {
		return err
	}
	exists, err := q.syncLocked(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if err := q.createLocked(ctx, len(vec)); err != nil {
			return err
		}
	} else if err := checkDimension(len(vec), q.dimensions); err != nil {
		return err
	}

	pid := pointID(id)
	seq := q.nextSeq
	replaced := false
	got, err := q.points.Get(ctx, &pb.GetPoints{
		CollectionName: q.collection,
		Ids:            []*pb.PointId{pid},
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return fmt.Errorf("qdrant get %q: %w", id, err)
	}
	if res := got.GetResult(); len(res) > 0 {
		seq = uint64(res[0].GetPayload()[payloadSeq].GetIntegerValue())
		replaced = true
	}

	wait := true
	_, err = q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id:      pid,
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vec}}},
			Payload: map[string]*pb.Value{
				payloadDocID: {Kind: &pb.Value_StringValue{StringValue: id}},
				payloadSeq:   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(seq)}},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %q: %w", id, err)
	}
	if !replaced {
		q.nextSeq++
	}
	return nil
}

// Query searches the collection and converts similarity to cosine distance.
func (q *QdrantIndex) Query(ctx context.Context, vec []float32, k int) ([]Neighbor, error) {
	q.mu.Lock()
	exists, err := q.syncLocked(ctx)
	dims := q.dimensions
	q.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if k <= 0 || !exists {
		return []Neighbor{}, nil
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	count, err := q.countLocked(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []Neighbor{}, nil
	}
	if err := checkDimension(len(vec), dims); err != nil {
		return nil, err
	}
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	cands := make([]candidate, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		cands[i] = candidate{
			id:   pt.GetPayload()[payloadDocID].GetStringValue(),
			dist: 1 - float64(pt.GetScore()),
			seq:  uint64(pt.GetPayload()[payloadSeq].GetIntegerValue()),
		}
	}
	return topK(cands, k), nil
}

func (q *QdrantIndex) countLocked(ctx context.Context) (int, error) {
	exact := true
	resp, err := q.points.Count(ctx, &pb.CountPoints{CollectionName: q.collection, Exact: &exact})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	exists, err := q.syncLocked(ctx)
	if err != nil || !exists {
		return 0, err
	}
	return q.countLocked(ctx)
}

type qdrantPoint struct {
	id  string
	seq uint64
}

func (q *QdrantIndex) scrollAll(ctx context.Context) ([]qdrantPoint, error) {
	var (
		out    []qdrantPoint
		offset *pb.PointId
		limit  = uint32(scrollPage)
	)
	for {
		resp, err := q.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: q.collection,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll: %w", err)
		}
		for _, p := range resp.GetResult() {
			out = append(out, qdrantPoint{
				id:  p.GetPayload()[payloadDocID].GetStringValue(),
				seq: uint64(p.GetPayload()[payloadSeq].GetIntegerValue()),
			})
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			return out, nil
		}
	}
}

// ListIDs returns the stored IDs in insertion order.
func (q *QdrantIndex) ListIDs(ctx context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	exists, err := q.syncLocked(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []string{}, nil
	}
	points, err := q.scrollAll(ctx)
	if err != nil {
		return nil, err
	}
	cands := make([]candidate, len(points))
	for i, p := range points {
		cands[i] = candidate{id: p.id, seq: p.seq}
	}
	ns := topK(cands, len(cands))
	ids := make([]string, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}
	return ids, nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}
