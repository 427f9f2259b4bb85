package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docsearch/config"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion = []byte("schema_version")
	keyConfigHash    = []byte("config_hash")
)

// SchemaInfo stores schema version and configuration hash.
type SchemaInfo struct {
	Version    int    `json:"version"`
	ConfigHash string `json:"config_hash"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		if versionData := b.Get(keySchemaVersion); versionData != nil {
			if err := json.Unmarshal(versionData, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		if hashData := b.Get(keyConfigHash); hashData != nil {
			info.ConfigHash = string(hashData)
		}
		return nil
	})
	return &info, err
}

// SetSchemaInfo stores the schema info in the database.
func (s *BoltStore) SetSchemaInfo(info *SchemaInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)

		versionData, err := json.Marshal(info.Version)
		if err != nil {
			return err
		}
		if err := b.Put(keySchemaVersion, versionData); err != nil {
			return err
		}

		return b.Put(keyConfigHash, []byte(info.ConfigHash))
	})
}

// ComputeConfigHash computes a hash of index-relevant configuration.
// Chunk boundaries and vectors both depend on it, so a change means the
// stored index no longer matches what a fresh ingestion would produce.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize   int    `json:"chunk_size"`
		Overlap     int    `json:"overlap"`
		EmbProvider string `json:"emb_provider"`
		EmbModel    string `json:"emb_model"`
		EmbDim      int    `json:"emb_dim"`
	}{
		ChunkSize:   cfg.Index.ChunkSize,
		Overlap:     cfg.Index.ChunkOverlap,
		EmbProvider: cfg.Embedding.Provider,
		EmbModel:    cfg.Embedding.Model,
		EmbDim:      cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// SchemaCheck describes whether stored data can be reused.
type SchemaCheck struct {
	NeedsRebuild bool
	Reason       string
}

// CheckSchema compares the stored schema info with cfg. An empty database
// never needs a rebuild.
func (s *BoltStore) CheckSchema(cfg *config.Config) (*SchemaCheck, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &SchemaCheck{}
	switch {
	case info.Version == 0:
		return result, nil
	case info.Version != CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("schema version changed (v%d -> v%d)", info.Version, CurrentSchemaVersion)
	case info.ConfigHash != ComputeConfigHash(cfg):
		result.NeedsRebuild = true
		result.Reason = "index configuration changed"
	}
	return result, nil
}

// Stamp records the current schema version and config hash.
func (s *BoltStore) Stamp(cfg *config.Config) error {
	return s.SetSchemaInfo(&SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: ComputeConfigHash(cfg),
	})
}

// Clear removes all chunks, vectors and schema info. Vector stores opened
// on this database before Clear must be reopened.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketBlobs, bucketMeta, bucketVectors} {
			if tx.Bucket(name) == nil {
				continue
			}
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		for _, name := range [][]byte{bucketChunks, bucketBlobs, bucketMeta} {
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}
