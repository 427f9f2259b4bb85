package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"docsearch/internal/domain"
)

var (
	bucketChunks = []byte("chunks")
	bucketBlobs  = []byte("blobs")
	bucketMeta   = []byte("meta")
)

// BoltStore persists chunk payloads in a bbolt database.
// Metadata and text are stored in separate buckets keyed by chunk ID.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketBlobs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type chunkMeta struct {
	DocID    string         `json:"doc_id"`
	Index    int            `json:"chunk"`
	Seq      uint64         `json:"seq"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *BoltStore) PutChunks(chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		chunkBucket := tx.Bucket(bucketChunks)
		blobBucket := tx.Bucket(bucketBlobs)

		for _, chunk := range chunks {
			key := []byte(chunk.ID)

			// Keep the original sequence number when replacing a chunk.
			var seq uint64
			if existing := chunkBucket.Get(key); existing != nil {
				var old chunkMeta
				if err := json.Unmarshal(existing, &old); err == nil {
					seq = old.Seq
				}
			}
			if seq == 0 {
				next, err := chunkBucket.NextSequence()
				if err != nil {
					return err
				}
				seq = next
			}

			data, err := json.Marshal(chunkMeta{
				DocID:    chunk.DocID,
				Index:    chunk.Index,
				Seq:      seq,
				Metadata: chunk.Metadata,
			})
			if err != nil {
				return err
			}
			if err := chunkBucket.Put(key, data); err != nil {
				return err
			}
			if err := blobBucket.Put(key, []byte(chunk.Text)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk not found: %s", id)
		}
		meta, err := decodeChunkMeta(data)
		if err != nil {
			return err
		}
		text := tx.Bucket(bucketBlobs).Get([]byte(id))
		chunk = meta.toChunk(id, text)
		return nil
	})
	return chunk, err
}

// ListChunks returns every chunk in first-insertion order.
func (s *BoltStore) ListChunks() ([]domain.Chunk, error) {
	type seqChunk struct {
		seq   uint64
		chunk domain.Chunk
	}
	var all []seqChunk

	err := s.db.View(func(tx *bbolt.Tx) error {
		blobBucket := tx.Bucket(bucketBlobs)
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			meta, err := decodeChunkMeta(v)
			if err != nil {
				return nil // Skip corrupted entries
			}
			all = append(all, seqChunk{
				seq:   meta.Seq,
				chunk: meta.toChunk(string(k), blobBucket.Get(k)),
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	chunks := make([]domain.Chunk, len(all))
	for i, c := range all {
		chunks[i] = c.chunk
	}
	return chunks, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// decodeChunkMeta keeps integer metadata as int instead of float64.
func decodeChunkMeta(data []byte) (chunkMeta, error) {
	var meta chunkMeta
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return meta, err
	}
	for k, v := range meta.Metadata {
		num, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := num.Int64(); err == nil {
			meta.Metadata[k] = int(i)
		} else if f, err := num.Float64(); err == nil {
			meta.Metadata[k] = f
		}
	}
	return meta, nil
}

func (m chunkMeta) toChunk(id string, text []byte) domain.Chunk {
	return domain.Chunk{
		ID:       id,
		DocID:    m.DocID,
		Index:    m.Index,
		Text:     string(text),
		Metadata: m.Metadata,
	}
}
