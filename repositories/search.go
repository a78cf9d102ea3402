//go:generate go run go.uber.org/mock/mockgen -source=search.go -destination=../mocks/mock_search_repository.go -package=mocks
package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"chatd/domain"
)

type ISearchRepository interface {
	Index(msg domain.ChatMessage) error
	SearchPaginated(ctx context.Context, query string, channel uuid.UUID, offset int) ([]SearchHit, uint64, error)
}

// SearchHit is one full-text match, rebuilt from the stored fields of the
// bluge document.
type SearchHit struct {
	ID      uuid.UUID
	Channel uuid.UUID
	Author  uuid.UUID
	Content string
	At      time.Time
	Score   float64
}

// SearchRepository maintains a bluge full-text index over message contents.
// Indexing is best effort: BadgerDB stays the source of truth and a failed
// index write never blocks message delivery.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
	limit  int
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger, limit int) *SearchRepository {
	if limit <= 0 {
		limit = 20
	}
	return &SearchRepository{writer: writer, log: log, limit: limit}
}

func (s *SearchRepository) Index(msg domain.ChatMessage) error {
	doc := bluge.NewDocument(msg.ID.String())
	doc.AddField(bluge.NewTextField("content", msg.Content).StoreValue())
	doc.AddField(bluge.NewKeywordField("channel", msg.Channel.String()).StoreValue())
	doc.AddField(bluge.NewKeywordField("author", msg.Author.String()).StoreValue())
	doc.AddField(bluge.NewDateTimeField("at", msg.CreatedAt))
	doc.AddField(bluge.NewStoredOnlyField("at_raw", []byte(msg.CreatedAt.UTC().Format(time.RFC3339Nano))))
	return s.writer.Update(doc.ID(), doc)
}

// SearchPaginated runs a match query over message contents, restricted to one
// channel, and returns one page of hits plus the total match count.
func (s *SearchRepository) SearchPaginated(ctx context.Context, query string, channel uuid.UUID, offset int) ([]SearchHit, uint64, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Warn("Failed to close bluge reader", "error", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content")).
		AddMust(bluge.NewTermQuery(channel.String()).SetField("channel"))

	request := bluge.NewTopNSearch(s.limit, q).
		SetFrom(offset).
		WithStandardAggregations()

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, err
	}

	hits := make([]SearchHit, 0, s.limit)
	match, err := iterator.Next()
	for err == nil && match != nil {
		hit := SearchHit{Score: match.Score}
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID, _ = uuid.Parse(string(value))
			case "channel":
				hit.Channel, _ = uuid.Parse(string(value))
			case "author":
				hit.Author, _ = uuid.Parse(string(value))
			case "content":
				hit.Content = string(value)
			case "at_raw":
				if at, timeErr := time.Parse(time.RFC3339Nano, string(value)); timeErr == nil {
					hit.At = at.UTC()
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, 0, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, 0, err
	}
	return hits, iterator.Aggregations().Count(), nil
}
