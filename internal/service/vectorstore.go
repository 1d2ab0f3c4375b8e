package service

import (
	"context"
	"math"
	"sort"

	"github.com/davec/filmscout/internal/domain"
	"github.com/davec/filmscout/internal/logger"
	"github.com/davec/filmscout/internal/repository"
)

// VectorStore indexes normalized movie records for semantic search and
// recommendation. Records are written through: the movie row and its
// embedding are stored together, keyed by the normalized title+year key.
type VectorStore struct {
	movieRepo  *repository.MovieRepository
	vectorRepo *repository.VectorRepository
	embedder   Embedder
}

// NewVectorStore creates a new vector store service.
// Parameters:
//   - movieRepo: repository for normalized movie records.
//   - vectorRepo: repository for stored embeddings.
//   - embedder: embedding provider for documents and queries.
// Returns:
//   - *VectorStore: initialized store.
func NewVectorStore(
	movieRepo *repository.MovieRepository,
	vectorRepo *repository.VectorRepository,
	embedder Embedder,
) *VectorStore {
	return &VectorStore{
		movieRepo:  movieRepo,
		vectorRepo: vectorRepo,
		embedder:   embedder,
	}
}

// Upsert embeds the movie's search document and stores both the record
// and its vector. An existing entry with the same key is overwritten.
func (s *VectorStore) Upsert(ctx context.Context, movie *domain.Movie) error {
	movie.EnsureKey()

	vector, err := s.embedder.Embed(ctx, movie.SearchDocument())
	if err != nil {
		return err
	}

	if err := s.movieRepo.Upsert(ctx, movie); err != nil {
		return domain.NewProviderError(domain.KindIndex, "vectorstore",
			"failed to store movie record", err)
	}
	if err := s.vectorRepo.Upsert(ctx, movie.Key, vector); err != nil {
		return domain.NewProviderError(domain.KindIndex, "vectorstore",
			"failed to store embedding", err)
	}

	logger.CtxDebug(ctx, "Upserted movie into index: key=%s", movie.Key)
	return nil
}

// SemanticSearch embeds the query and returns the k nearest stored
// movies, nearest first. Ties are broken by insertion recency (most
// recently upserted wins). An empty store yields an empty slice.
func (s *VectorStore) SemanticSearch(ctx context.Context, query string, k int) ([]domain.MovieSearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	count, err := s.vectorRepo.Count(ctx)
	if err != nil {
		return nil, domain.NewProviderError(domain.KindIndex, "vectorstore",
			"index unavailable", err)
	}
	if count == 0 {
		return []domain.MovieSearchResult{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return s.searchByVector(ctx, queryVec, k, "")
}

// Recommend returns the k movies most similar to the stored record for
// title, excluding the title itself. A title absent from the store is
// a NotFound condition.
func (s *VectorStore) Recommend(ctx context.Context, title string, k int) ([]domain.MovieSearchResult, error) {
	movie, err := s.movieRepo.FindByTitle(ctx, title)
	if err != nil {
		return nil, domain.NewProviderError(domain.KindIndex, "vectorstore",
			"index unavailable", err)
	}
	if movie == nil {
		return nil, domain.NewProviderError(domain.KindNotFound, "vectorstore",
			"title not in local index: "+title, nil)
	}

	// Prefer the stored vector; re-embed only if it is missing.
	stored, err := s.vectorRepo.Get(ctx, movie.Key)
	if err != nil {
		return nil, domain.NewProviderError(domain.KindIndex, "vectorstore",
			"index unavailable", err)
	}

	var refVec []float32
	if stored != nil {
		refVec = stored.Vector
	} else {
		refVec, err = s.embedder.Embed(ctx, movie.SearchDocument())
		if err != nil {
			return nil, err
		}
	}

	return s.searchByVector(ctx, refVec, k, movie.Key)
}

// Count returns the number of indexed documents.
func (s *VectorStore) Count(ctx context.Context) (int64, error) {
	return s.vectorRepo.Count(ctx)
}

func (s *VectorStore) searchByVector(ctx context.Context, queryVec []float32, k int, excludeKey string) ([]domain.MovieSearchResult, error) {
	vectors, err := s.vectorRepo.All(ctx)
	if err != nil {
		return nil, domain.NewProviderError(domain.KindIndex, "vectorstore",
			"index unavailable", err)
	}

	type scored struct {
		key   string
		score float32
	}

	// vectors arrive most recently upserted first, so a stable sort by
	// score keeps recency as the tie-breaker
	ranked := make([]scored, 0, len(vectors))
	for _, v := range vectors {
		if v.Key == excludeKey {
			continue
		}
		ranked = append(ranked, scored{key: v.Key, score: cosineSimilarity(queryVec, v.Vector)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	keys := make([]string, len(ranked))
	for i, r := range ranked {
		keys[i] = r.key
	}
	movies, err := s.movieRepo.GetByKeys(ctx, keys)
	if err != nil {
		return nil, domain.NewProviderError(domain.KindIndex, "vectorstore",
			"failed to load records", err)
	}
	byKey := make(map[string]domain.Movie, len(movies))
	for _, m := range movies {
		byKey[m.Key] = m
	}

	results := make([]domain.MovieSearchResult, 0, len(ranked))
	for _, r := range ranked {
		movie, ok := byKey[r.key]
		if !ok {
			// vector without a record; skip rather than fail the search
			logger.CtxWarn(ctx, "Indexed vector has no movie record: key=%s", r.key)
			continue
		}
		results = append(results, domain.MovieSearchResult{Movie: movie, Score: r.score})
	}

	return results, nil
}

// cosineSimilarity returns the cosine of the angle between a and b,
// 0 when either vector is zero or the dimensions disagree.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
