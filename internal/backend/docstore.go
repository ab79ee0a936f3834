package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	pendla "github.com/pendla/pendla/internal"
)

// DocStore is a durable REST document-store backend. One document per cache
// key, addressed by a server-assigned document id that is carried around as
// the opaque Ref: an insert is a POST, an in-place refresh is a PUT against
// the id from the previous read.
//
// Wire contract:
//
//	GET  {base}/docs?key={keyType-id}  -> 200 {"id","value","synced_at"} | 404
//	POST {base}/docs                   -> 201 {"id"}
//	PUT  {base}/docs/{id}              -> 200
type DocStore struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var (
	_ Store     = (*DocStore)(nil)
	_ RefWriter = (*DocStore)(nil)
)

// NewDocStore creates a document-store backend. The provided client should
// have its timeout and transport configured by the caller.
func NewDocStore(baseURL string, apiKey string, client *http.Client) *DocStore {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DocStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    client,
	}
}

// docBody is the document payload sent on insert and update.
type docBody struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	SyncedAt int64  `json:"synced_at"`
}

// Get performs a point lookup by flat key.
func (d *DocStore) Get(ctx context.Context, key pendla.Key) (*pendla.Entry, error) {
	reqURL := d.baseURL + "/docs?key=" + url.QueryEscape(key.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: docstore: create request: %v", pendla.ErrBackendUnavailable, err)
	}
	d.setHeaders(req)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: docstore: %v", pendla.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: docstore: HTTP %d", pendla.ErrBackendUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: docstore: read response: %v", pendla.ErrBackendUnavailable, err)
	}
	doc := gjson.ParseBytes(body)
	docID := doc.Get("id").String()
	if docID == "" {
		return nil, fmt.Errorf("%w: docstore: response missing document id", pendla.ErrBackendUnavailable)
	}
	return &pendla.Entry{
		Value:    []byte(doc.Get("value").String()),
		SyncedAt: time.Unix(doc.Get("synced_at").Int(), 0),
		Ref:      docID,
	}, nil
}

// GetMany fans out one concurrent point lookup per id and joins before
// returning. Each lookup targets a disjoint key, so ordering between them
// does not matter.
func (d *DocStore) GetMany(ctx context.Context, keyType string, ids []string) (map[string]*pendla.Entry, error) {
	out := make(map[string]*pendla.Entry, len(ids))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			e, err := d.Get(ctx, pendla.Key{Type: keyType, ID: id})
			if err != nil {
				return err
			}
			if e != nil {
				mu.Lock()
				out[id] = e
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PutWithRef inserts a new document when prev is nil and updates the
// referenced document in place otherwise.
func (d *DocStore) PutWithRef(ctx context.Context, key pendla.Key, prev pendla.Ref, e pendla.Entry) error {
	payload, err := json.Marshal(docBody{
		Key:      key.String(),
		Value:    string(e.Value),
		SyncedAt: e.SyncedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("%w: docstore: marshal document: %v", pendla.ErrBackendUnavailable, err)
	}

	method := http.MethodPost
	reqURL := d.baseURL + "/docs"
	if prev != nil {
		docID, ok := prev.(string)
		if !ok {
			return fmt.Errorf("%w: docstore: foreign ref type %T", pendla.ErrBackendUnavailable, prev)
		}
		method = http.MethodPut
		reqURL = d.baseURL + "/docs/" + url.PathEscape(docID)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: docstore: create request: %v", pendla.ErrBackendUnavailable, err)
	}
	d.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: docstore: %v", pendla.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: docstore: HTTP %d", pendla.ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

// Close is a no-op; the HTTP client pool is shared and owned by the caller.
func (d *DocStore) Close() error { return nil }

func (d *DocStore) setHeaders(req *http.Request) {
	if d.apiKey != "" {
		req.Header.Set("X-Api-Key", d.apiKey)
	}
}
