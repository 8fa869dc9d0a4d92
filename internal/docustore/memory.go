package docustore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Memory simulates the docustore contract in-process. It implements both
// Execer and Querier so a Client can run against it unchanged in tests and
// in the offline demo. ReadLag delays the visibility of fresh writes by a
// number of queries to mimic the chain's eventual consistency.
type Memory struct {
	mu sync.Mutex

	// ReadLag is how many UserDocuments queries a new write stays invisible
	// for. Zero means immediate visibility.
	ReadLag int

	// ExecErr, when set, fails the next Execute call and resets.
	ExecErr error
	// QueryErr, when set, fails the next QuerySmart call and resets.
	QueryErr error
	// FailCode, when non-zero, makes the next Execute return that tx code.
	FailCode   uint32
	FailRawLog string
	// OmitStoredEvent suppresses the document_stored event to exercise the
	// fallback-id path.
	OmitStoredEvent bool

	seq  int
	docs map[string]memoryDoc
}

type memoryDoc struct {
	collection string
	owner      string
	data       string
	createdAt  time.Time
	updatedAt  time.Time
	visibleAt  int // query sequence at which the write becomes visible
}

func NewMemory() *Memory {
	return &Memory{docs: map[string]memoryDoc{}}
}

func (m *Memory) Execute(ctx context.Context, sender string, msg any, fee Fee) (ExecResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ExecErr; err != nil {
		m.ExecErr = nil
		return ExecResult{}, err
	}
	if code := m.FailCode; code != 0 {
		m.FailCode = 0
		return ExecResult{Code: code, RawLog: m.FailRawLog}, nil
	}

	m.seq++
	hash := fmt.Sprintf("%08X", m.seq)
	now := time.Now()

	switch v := msg.(type) {
	case SetMsg:
		id := v.Set.Document
		m.docs[id] = memoryDoc{
			collection: v.Set.Collection,
			owner:      sender,
			data:       v.Set.Data,
			createdAt:  now,
			updatedAt:  now,
			visibleAt:  m.seq + m.ReadLag,
		}
		res := ExecResult{TxHash: hash}
		if !m.OmitStoredEvent {
			res.Events = []ExecEvent{{
				Type:       documentStoredEvent,
				Attributes: []ExecAttribute{{Key: "id", Value: id}},
			}}
		}
		return res, nil

	case UpdateMsg:
		id := v.Update.Document
		doc, ok := m.docs[id]
		if !ok {
			return ExecResult{Code: 5, RawLog: fmt.Sprintf("document %s not found", id)}, nil
		}
		doc.data = v.Update.Data
		doc.updatedAt = now
		doc.visibleAt = m.seq + m.ReadLag
		m.docs[id] = doc
		return ExecResult{TxHash: hash}, nil

	case DeleteMsg:
		delete(m.docs, v.Delete.Document)
		return ExecResult{TxHash: hash}, nil
	}

	return ExecResult{Code: 2, RawLog: "unknown message"}, nil
}

func (m *Memory) QuerySmart(ctx context.Context, query any, result any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.QueryErr; err != nil {
		m.QueryErr = nil
		return err
	}

	m.seq++

	switch q := query.(type) {
	case UserDocumentsQuery:
		var resp userDocumentsResponse
		resp.Documents = []documentEntry{}
		for id, doc := range m.docs {
			if doc.collection != q.UserDocuments.Collection || doc.owner != q.UserDocuments.Owner {
				continue
			}
			if doc.visibleAt > m.seq {
				continue
			}
			resp.Documents = append(resp.Documents, documentEntry{ID: id, Doc: wireDoc(id, doc)})
		}
		return reencode(resp, result)

	case DocumentQuery:
		var resp documentResponse
		if doc, ok := m.docs[q.Document.ID]; ok && doc.visibleAt <= m.seq {
			w := wireDoc(q.Document.ID, doc)
			resp.Document = &w
		}
		return reencode(resp, result)
	}

	return fmt.Errorf("unknown query %T", query)
}

// Documents returns the ids currently stored, ignoring read lag. Test helper.
func (m *Memory) Documents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	return ids
}

func wireDoc(id string, doc memoryDoc) wireDocument {
	return wireDocument{
		ID:        id,
		Owner:     doc.owner,
		Data:      doc.data,
		CreatedAt: doc.createdAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: doc.updatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// reencode round-trips through JSON the way the real query client decodes
// contract responses.
func reencode(from, to any) error {
	b, err := json.Marshal(from)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, to)
}
