// Package search mirrors contestants into Elasticsearch for fuzzy name lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"contest_registry/internal/domain/model"

	es "github.com/elastic/go-elasticsearch/v8"
)

const IdxContestants = "contestants_v1"

func Connect(url string) (*es.Client, error) {
	client, err := es.NewClient(es.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	log.Println("INFO: Elasticsearch client configured for", url)
	return client, nil
}

func EnsureIndexes(ctx context.Context, c *es.Client) error {
	mapping := `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
		"name":{"type":"text"},"registration_number":{"type":"keyword"},"education_level":{"type":"keyword"},
		"supervisor_id":{"type":"long"},"is_active":{"type":"boolean"},"updated_at":{"type":"date"}
	}}}`
	return ensure(ctx, c, IdxContestants, mapping)
}

func ensure(ctx context.Context, c *es.Client, index, body string) error {
	exists, err := c.Indices.Exists([]string{index}, c.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}
	res, err := c.Indices.Create(index, c.Indices.Create.WithBody(bytes.NewBufferString(body)), c.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", index, res.String())
	}
	return nil
}

type ContestantDoc struct {
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registration_number"`
	EducationLevel     string    `json:"education_level"`
	SupervisorID       *uint     `json:"supervisor_id,omitempty"`
	IsActive           bool      `json:"is_active"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func BuildContestantDoc(c *model.Contestant) ([]byte, error) {
	return json.Marshal(ContestantDoc{
		Name:               c.Name,
		RegistrationNumber: c.RegistrationNumber,
		EducationLevel:     c.EducationLevel,
		SupervisorID:       c.SupervisorID,
		IsActive:           c.IsActive,
		UpdatedAt:          c.UpdatedAt,
	})
}

// BuildSearchQuery matches the term fuzzily against names and exactly against registration numbers.
func BuildSearchQuery(term string, supervisorID *uint, limit int) ([]byte, error) {
	boolQuery := map[string]any{
		"should": []any{
			map[string]any{"match": map[string]any{"name": map[string]any{"query": term, "fuzziness": "AUTO"}}},
			map[string]any{"term": map[string]any{"registration_number": term}},
		},
		"minimum_should_match": 1,
	}
	if supervisorID != nil {
		boolQuery["filter"] = []any{map[string]any{"term": map[string]any{"supervisor_id": *supervisorID}}}
	}
	return json.Marshal(map[string]any{
		"size":    limit,
		"_source": false,
		"query":   map[string]any{"bool": boolQuery},
	})
}

// ContestantIndex keeps the contestant index in step with the database.
type ContestantIndex struct {
	es *es.Client
}

func NewContestantIndex(c *es.Client) *ContestantIndex {
	return &ContestantIndex{es: c}
}

func (i *ContestantIndex) IndexContestant(ctx context.Context, c *model.Contestant) error {
	doc, err := BuildContestantDoc(c)
	if err != nil {
		return err
	}
	res, err := i.es.Index(IdxContestants, bytes.NewReader(doc),
		i.es.Index.WithDocumentID(strconv.FormatUint(uint64(c.ID), 10)),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index contestant %d: %w", c.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index contestant %d: %s", c.ID, res.String())
	}
	return nil
}

func (i *ContestantIndex) DeleteContestant(ctx context.Context, id uint) error {
	res, err := i.es.Delete(IdxContestants, strconv.FormatUint(uint64(id), 10), i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete contestant %d from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete contestant %d from index: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchContestants returns matching contestant ids ordered by relevance.
func (i *ContestantIndex) SearchContestants(ctx context.Context, term string, supervisorID *uint, limit int) ([]uint, error) {
	body, err := BuildSearchQuery(term, supervisorID, limit)
	if err != nil {
		return nil, err
	}
	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(IdxContestants),
		i.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search contestants: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search contestants: %s", res.String())
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]uint, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
