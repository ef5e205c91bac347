package opensearchengine_test

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/require"
)

var fakeJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// fakeOpenSearch implements the part of the OpenSearch REST API the engine uses:
// index exists/create, bulk create, refresh, and search with bool/filter queries sorted by one field.
type fakeOpenSearch struct {
	mu        sync.Mutex
	indices   map[string]map[string][]byte
	searches  [][]byte
	refreshes int
}

func newFakeOpenSearch(t *testing.T) (*fakeOpenSearch, *opensearch.Client) {
	t.Helper()

	fake := &fakeOpenSearch{indices: make(map[string]map[string][]byte)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	return fake, client
}

func (f *fakeOpenSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/":
		writeFake(w, http.StatusOK, map[string]any{"version": map[string]any{"number": "2.11.0", "distribution": "opensearch"}})
	case len(segments) == 1 && r.Method == http.MethodHead:
		if _, ok := f.indices[segments[0]]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}

		w.WriteHeader(http.StatusNotFound)
	case len(segments) == 1 && r.Method == http.MethodPut:
		if _, ok := f.indices[segments[0]]; ok {
			writeFake(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "resource_already_exists_exception"}})
			return
		}

		f.indices[segments[0]] = make(map[string][]byte)
		writeFake(w, http.StatusOK, map[string]any{"acknowledged": true})
	case segments[len(segments)-1] == "_bulk":
		f.bulk(w, segments, body)
	case len(segments) == 2 && segments[1] == "_refresh":
		f.refreshes++
		writeFake(w, http.StatusOK, map[string]any{"_shards": map[string]int{"total": 1, "successful": 1}})
	case len(segments) == 2 && segments[1] == "_search":
		f.search(w, segments[0], body)
	default:
		writeFake(w, http.StatusNotFound, map[string]any{"error": "unsupported " + r.Method + " " + r.URL.Path})
	}
}

func (f *fakeOpenSearch) bulk(w http.ResponseWriter, segments []string, body []byte) {
	items := make([]map[string]any, 0)
	hasErrors := false
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		var meta map[string]struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		}
		if err := fakeJSON.Unmarshal(scanner.Bytes(), &meta); err != nil || !scanner.Scan() {
			writeFake(w, http.StatusBadRequest, map[string]any{"error": "malformed bulk body"})
			return
		}

		document := slices.Clone(scanner.Bytes())
		action := meta["create"]
		index := action.Index
		if index == "" && len(segments) == 2 {
			index = segments[0]
		}

		docs, ok := f.indices[index]
		if !ok {
			docs = make(map[string][]byte)
			f.indices[index] = docs
		}

		if _, exists := docs[action.ID]; exists {
			hasErrors = true
			items = append(items, map[string]any{"create": map[string]any{
				"_index": index, "_id": action.ID, "status": http.StatusConflict,
				"error": map[string]any{"type": "version_conflict_engine_exception", "reason": "document already exists"},
			}})

			continue
		}

		docs[action.ID] = document
		items = append(items, map[string]any{"create": map[string]any{
			"_index": index, "_id": action.ID, "status": http.StatusCreated, "result": "created",
		}})
	}

	writeFake(w, http.StatusOK, map[string]any{"took": 1, "errors": hasErrors, "items": items})
}

type fakeSearchRequest struct {
	Query struct {
		Bool struct {
			Filter []map[string]map[string]jsoniter.RawMessage `json:"filter"`
		} `json:"bool"`
	} `json:"query"`
	Size int `json:"size"`
}

func (f *fakeOpenSearch) search(w http.ResponseWriter, index string, body []byte) {
	f.searches = append(f.searches, body)

	docs, ok := f.indices[index]
	if !ok {
		writeFake(w, http.StatusNotFound, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}})
		return
	}

	var request fakeSearchRequest
	if err := fakeJSON.Unmarshal(body, &request); err != nil {
		writeFake(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	hits := make([]map[string]any, 0)
	for _, id := range ids {
		if len(hits) == request.Size {
			break
		}

		var source map[string]any
		_ = fakeJSON.Unmarshal(docs[id], &source)

		if matchesFilters(source, request.Query.Bool.Filter) {
			hits = append(hits, map[string]any{"_id": id, "_index": index, "_source": jsoniter.RawMessage(docs[id])})
		}
	}

	writeFake(w, http.StatusOK, map[string]any{"hits": map[string]any{"hits": hits}})
}

func matchesFilters(source map[string]any, filters []map[string]map[string]jsoniter.RawMessage) bool {
	for _, filter := range filters {
		for kind, clause := range filter {
			for field, raw := range clause {
				value, present := source[field].(string)
				if !present {
					return false
				}

				switch kind {
				case "term":
					var expected string
					_ = fakeJSON.Unmarshal(raw, &expected)

					if value != expected {
						return false
					}
				case "range":
					var bounds map[string]string
					_ = fakeJSON.Unmarshal(raw, &bounds)

					if !inRange(field, value, bounds) {
						return false
					}
				default:
					return false
				}
			}
		}
	}

	return true
}

func inRange(field string, value string, bounds map[string]string) bool {
	compare := strings.Compare
	if field == "time" {
		compare = func(a, b string) int {
			at, _ := time.Parse(time.RFC3339Nano, a)
			bt, _ := time.Parse(time.RFC3339Nano, b)

			return at.Compare(bt)
		}
	}

	for op, bound := range bounds {
		cmp := compare(value, bound)

		switch op {
		case "gt":
			if cmp <= 0 {
				return false
			}
		case "gte":
			if cmp < 0 {
				return false
			}
		case "lte":
			if cmp > 0 {
				return false
			}
		}
	}

	return true
}

func (f *fakeOpenSearch) lastSearch() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.searches) == 0 {
		return nil
	}

	return f.searches[len(f.searches)-1]
}

func (f *fakeOpenSearch) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.refreshes
}

func writeFake(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = fakeJSON.NewEncoder(w).Encode(body)
}
