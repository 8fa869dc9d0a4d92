// Package docustore wraps the on-chain document collection contract. Every
// mutating call is a metered transaction with unspecified but bounded
// latency; callers must not expect read-after-write consistency and instead
// confirm writes by polling the collection.
package docustore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alsoknownaszac/tendly/internal/model"
	"github.com/alsoknownaszac/tendly/internal/wallet"
)

const documentStoredEvent = "docustore.document_stored"

// Fee is the fixed fee/gas budget attached to every mutating transaction.
type Fee struct {
	Amount string
	Denom  string
	Gas    string
}

// DefaultFee matches the contract deployment defaults.
var DefaultFee = Fee{Amount: "1000", Denom: "uxion", Gas: "200000"}

// ExecResult is the broadcast outcome of a mutating transaction.
type ExecResult struct {
	Code   uint32
	RawLog string
	TxHash string
	Events []ExecEvent
}

type ExecEvent struct {
	Type       string
	Attributes []ExecAttribute
}

type ExecAttribute struct {
	Key   string
	Value string
}

// Execer signs and broadcasts a mutating contract message.
type Execer interface {
	Execute(ctx context.Context, sender string, msg any, fee Fee) (ExecResult, error)
}

// Querier runs read-only smart queries against the contract and decodes the
// response into result.
type Querier interface {
	QuerySmart(ctx context.Context, query any, result any) error
}

// Contract message shapes. The contract addresses documents by
// (owner, collection, document id); data is always a JSON string payload.

type SetMsg struct {
	Set DocBody `json:"Set"`
}

type UpdateMsg struct {
	Update DocBody `json:"Update"`
}

type DeleteMsg struct {
	Delete DocRef `json:"Delete"`
}

type DocBody struct {
	Collection string `json:"collection"`
	Document   string `json:"document"`
	Data       string `json:"data"`
}

type DocRef struct {
	Collection string `json:"collection"`
	Document   string `json:"document"`
}

type UserDocumentsQuery struct {
	UserDocuments OwnerCollection `json:"UserDocuments"`
}

type OwnerCollection struct {
	Owner      string `json:"owner"`
	Collection string `json:"collection"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

type DocumentQuery struct {
	Document DocumentRef `json:"document"`
}

type DocumentRef struct {
	ID string `json:"id"`
}

type wireDocument struct {
	ID        string `json:"id"`
	Owner     string `json:"owner"`
	Data      string `json:"data"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// documentEntry decodes the [id, document] pairs returned by UserDocuments.
type documentEntry struct {
	ID  string
	Doc wireDocument
}

func (e documentEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Doc})
}

func (e *documentEntry) UnmarshalJSON(b []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Doc)
}

type userDocumentsResponse struct {
	Documents []documentEntry `json:"documents"`
}

type documentResponse struct {
	Document *wireDocument `json:"document"`
}

// Client is the typed request/response wrapper around the docustore
// contract. It serializes documents, submits metered transactions, and
// surfaces raw failures; confirmation is the caller's concern.
type Client struct {
	exec    Execer
	querier Querier
	wallet  wallet.Provider
	fee     Fee
	log     zerolog.Logger
}

func NewClient(exec Execer, querier Querier, w wallet.Provider, fee Fee, log zerolog.Logger) *Client {
	if fee == (Fee{}) {
		fee = DefaultFee
	}
	return &Client{exec: exec, querier: querier, wallet: w, fee: fee, log: log}
}

func (c *Client) execute(ctx context.Context, msg any) (ExecResult, error) {
	if c.exec == nil || !c.wallet.IsConnected() {
		return ExecResult{}, ErrNotConnected
	}

	res, err := c.exec.Execute(ctx, c.wallet.AccountID(), msg, c.fee)
	if err != nil {
		return ExecResult{}, err
	}
	if res.Code != 0 {
		return res, &TxError{Code: res.Code, RawLog: res.RawLog}
	}
	return res, nil
}

// Store writes a new document under (owner, collection, docID) and returns
// the store-assigned id. When the store emits no id event the synthesized
// hash+time fallback is returned wrapped in ErrMissingDocumentID: the write
// landed, but the id cannot be trusted and must be surfaced, not silently
// accepted.
func (c *Client) Store(ctx context.Context, collection, docID string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	res, err := c.execute(ctx, SetMsg{Set: DocBody{
		Collection: collection,
		Document:   docID,
		Data:       string(data),
	}})
	if err != nil {
		return "", err
	}

	if id, ok := storedDocumentID(res); ok {
		c.log.Debug().Str("collection", collection).Str("id", id).Msg("document stored")
		return id, nil
	}

	fallback := fmt.Sprintf("doc_%s_%d", res.TxHash, time.Now().UnixMilli())
	c.log.Warn().
		Str("collection", collection).
		Str("fallback_id", fallback).
		Msg("store emitted no document id")
	return fallback, fmt.Errorf("%w: fallback id %s", ErrMissingDocumentID, fallback)
}

// Query lists the owner's documents in a collection, newest unspecified;
// callers sort by embedded payload timestamps. Returns an empty slice, never
// nil, when nothing matches.
func (c *Client) Query(ctx context.Context, collection string, limit, offset int) ([]model.Document, error) {
	if c.querier == nil {
		return nil, ErrQueryUnavailable
	}

	var resp userDocumentsResponse
	err := c.querier.QuerySmart(ctx, UserDocumentsQuery{UserDocuments: OwnerCollection{
		Owner:      c.wallet.AccountID(),
		Collection: collection,
		Limit:      limit,
		Offset:     offset,
	}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	docs := make([]model.Document, 0, len(resp.Documents))
	for _, entry := range resp.Documents {
		doc, err := decodeWireDocument(entry.ID, entry.Doc)
		if err != nil {
			c.log.Warn().Err(err).Str("id", entry.ID).Msg("skipping malformed document")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get fetches one document by id. Absence is not an error: both return
// values are zero when the id is unknown.
func (c *Client) Get(ctx context.Context, id string) (*model.Document, error) {
	if c.querier == nil {
		return nil, ErrQueryUnavailable
	}

	var resp documentResponse
	err := c.querier.QuerySmart(ctx, DocumentQuery{Document: DocumentRef{ID: id}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if resp.Document == nil {
		return nil, nil
	}

	doc, err := decodeWireDocument(resp.Document.ID, *resp.Document)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update replaces an existing document. The document must already exist
// remotely; there are no upsert semantics.
func (c *Client) Update(ctx context.Context, collection, docID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = c.execute(ctx, UpdateMsg{Update: DocBody{
		Collection: collection,
		Document:   docID,
		Data:       string(data),
	}})
	return err
}

// Delete removes a document.
func (c *Client) Delete(ctx context.Context, collection, docID string) error {
	_, err := c.execute(ctx, DeleteMsg{Delete: DocRef{
		Collection: collection,
		Document:   docID,
	}})
	return err
}

func storedDocumentID(res ExecResult) (string, bool) {
	for _, ev := range res.Events {
		if ev.Type != documentStoredEvent {
			continue
		}
		for _, attr := range ev.Attributes {
			if attr.Key == "id" && attr.Value != "" {
				return attr.Value, true
			}
		}
	}
	return "", false
}

func decodeWireDocument(id string, w wireDocument) (model.Document, error) {
	if id == "" {
		id = w.ID
	}

	doc := model.Document{
		ID:    id,
		Owner: w.Owner,
		Data:  json.RawMessage(w.Data),
	}
	if !json.Valid(doc.Data) {
		return model.Document{}, fmt.Errorf("document %s: payload is not valid JSON", id)
	}

	if w.CreatedAt != "" {
		t, err := parseWireTime(w.CreatedAt)
		if err != nil {
			return model.Document{}, fmt.Errorf("document %s: created_at: %w", id, err)
		}
		doc.CreatedAt = t
	}
	if w.UpdatedAt != "" {
		t, err := parseWireTime(w.UpdatedAt)
		if err != nil {
			return model.Document{}, fmt.Errorf("document %s: updated_at: %w", id, err)
		}
		doc.UpdatedAt = t
	}
	return doc, nil
}

func parseWireTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
