//go:build js && wasm

// Browser build: an in-memory index over files handed in from JavaScript,
// using the hash embedder and the term-overlap reranker.
package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"syscall/js"

	"docsearch/internal/adapter/chunker"
	"docsearch/internal/adapter/embedding"
	"docsearch/internal/adapter/memstore"
	"docsearch/internal/adapter/retriever"
	"docsearch/internal/domain"
	"docsearch/internal/usecase"
)

const dimension = 256

var docs *usecase.Retriever

func init() {
	reset()
}

func reset() {
	chk, _ := chunker.NewWordChunker(300, 30)
	semantic := retriever.NewSemanticStore(
		embedding.NewHashEmbedder(dimension),
		memstore.NewHNSWIndex(dimension),
		memstore.NewMemoryStore(),
	)
	docs = usecase.NewRetriever(nil, chk, semantic,
		retriever.NewReranker(retriever.NewOverlapScorer()),
		usecase.DefaultOptions(), nil)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("docsearchIndex", js.FuncOf(indexContent))
	js.Global().Set("docsearchSearch", js.FuncOf(searchContent))
	js.Global().Set("docsearchClear", js.FuncOf(clearIndex))
	js.Global().Set("docsearchStats", js.FuncOf(getStats))

	<-c
}

func indexContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: docsearchIndex(filename, content)")
	}

	filename := args[0].String()
	text := strings.TrimSpace(args[1].String())
	if text == "" {
		return makeError("empty document: " + filename)
	}

	doc := domain.Document{
		ID:   strings.TrimSuffix(filename, filepath.Ext(filename)),
		Text: text,
		Metadata: map[string]any{
			"filename": filename,
			"type":     strings.TrimPrefix(filepath.Ext(filename), "."),
		},
	}

	result, err := docs.IndexDocuments(context.Background(), []domain.Document{doc})
	if err != nil {
		return makeError("indexing failed: " + err.Error())
	}

	return makeResult(map[string]interface{}{
		"success":     true,
		"chunksAdded": result.ChunksAdded,
		"totalChunks": result.TotalChunks,
		"filename":    filename,
	})
}

func searchContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return makeError("usage: docsearchSearch(query, [n], [hybrid], [rerank])")
	}

	query := args[0].String()
	opts := usecase.SearchOptions{NResults: 5}
	if len(args) > 1 {
		opts.NResults = args[1].Int()
	}
	if len(args) > 2 {
		opts.UseHybrid = usecase.Bool(args[2].Bool())
	}
	if len(args) > 3 {
		opts.UseRerank = usecase.Bool(args[3].Bool())
	}

	results, err := docs.Search(context.Background(), query, opts)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}

	output := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		item := map[string]interface{}{
			"id":       r.Chunk.ID,
			"text":     r.Chunk.Text,
			"metadata": domain.ChunkMetadata(r.Chunk),
		}
		if r.Distance != nil {
			item["distance"] = *r.Distance
		}
		if r.RRFScore != nil {
			item["rrf_score"] = *r.RRFScore
		}
		if r.RerankScore != nil {
			item["rerank_score"] = *r.RerankScore
		}
		output = append(output, item)
	}

	return makeResult(map[string]interface{}{
		"results": output,
		"query":   query,
	})
}

func clearIndex(this js.Value, args []js.Value) interface{} {
	reset()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	stats, err := docs.Stats(context.Background())
	if err != nil {
		return makeError(err.Error())
	}
	return makeResult(map[string]interface{}{
		"indexed":     stats.Indexed,
		"totalChunks": stats.Chunks,
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
