package internal

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

// SearchFunc resolves a full-text query to matching message IDs,
// optionally scoped to a single conversation.
type SearchFunc func(ctx context.Context, terms string, conversationID uuid.UUID, limit int) ([]uuid.UUID, uint64, error)

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer exposes a read-only HTML view over the raw Badger keys,
// useful while developing against a live store. When search is non-nil a
// /search JSON endpoint is mounted alongside the inspector.
func StartDebugServer(db *badger.DB, port int, endpoint string, mapper RowMapper, statsProvider StatsProvider, search SearchFunc) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	if search != nil {
		mux.HandleFunc("/search", SearchHandler(search))
	}

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "conv:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// SearchHandler answers /search?q=&conversation=&limit= with the matching
// message IDs as JSON.
func SearchHandler(search SearchFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		terms := r.URL.Query().Get("q")
		if terms == "" {
			http.Error(w, "missing q parameter", http.StatusBadRequest)
			return
		}
		conversationID := uuid.Nil
		if raw := r.URL.Query().Get("conversation"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid conversation parameter", http.StatusBadRequest)
				return
			}
			conversationID = parsed
		}
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		ids, total, err := search(r.Context(), terms, conversationID, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"query":      terms,
			"total":      total,
			"messageIds": ids,
		})
	}
}

func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: time.Now().Format("15:04:05"),
	}
	if len(parts) > 1 {
		row.Type = strings.ToUpper(parts[0])
		row.EntityID = parts[1]
	}
	if len(val) > 0 && val[0] == '{' {
		row.Detail = string(val)
	}
	return row
}
