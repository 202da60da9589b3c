package daemon

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"mycinema/internal/catalog"
	"mycinema/internal/linkmatch"
	"mycinema/internal/logging"
	"mycinema/internal/titlesource"
)

type syncRequest struct {
	Kind   string   `json:"kind"`
	Lists  []string `json:"lists,omitempty"`
	Titles []string `json:"titles,omitempty"`
	Count  int      `json:"count"`
}

type acceptedResponse struct {
	Operation string `json:"operation"`
	Accepted  bool   `json:"accepted"`
}

type linksRequest struct {
	EpisodeID int64          `json:"episode_id,omitempty"`
	Links     []catalog.Link `json:"links"`
}

type findLinksRequest struct {
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

type historyRequest struct {
	ItemID    int64      `json:"item_id"`
	WatchedAt *time.Time `json:"watched_at,omitempty"`
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleLists(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodGet) {
		return
	}
	kind, ok := s.optionalKind(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"lists": s.daemon.runner.Lists(kind)})
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodPost) {
		return
	}
	var req syncRequest
	if !s.decodeBody(w, r, maxRequestBody, &req) {
		return
	}
	kind, err := catalog.ParseKind(req.Kind)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Count <= 0 {
		s.writeError(w, http.StatusBadRequest, "count must be positive")
		return
	}
	if (len(req.Lists) == 0) == (len(req.Titles) == 0) {
		s.writeError(w, http.StatusBadRequest, "exactly one of lists or titles is required")
		return
	}
	known := s.daemon.runner.Lists(kind)
	for _, name := range req.Lists {
		if !slices.Contains(known, name) {
			s.writeFailure(w, fmt.Errorf("%w %q (known: %s)", titlesource.ErrUnknownList, name, strings.Join(known, ", ")))
			return
		}
	}

	rn := s.daemon.runner
	err = s.daemon.trigger("sync", func(ctx context.Context) (any, error) {
		if len(req.Titles) > 0 {
			return rn.SyncTitles(ctx, kind, req.Titles, req.Count)
		}
		return rn.SyncLists(ctx, kind, req.Lists, req.Count)
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.logger.Info("sync accepted",
		logging.String(logging.FieldKind, string(kind)),
		logging.String(logging.FieldList, strings.Join(req.Lists, ",")),
		logging.Int("titles", len(req.Titles)),
		logging.Int("count", req.Count),
	)
	s.writeJSON(w, http.StatusAccepted, acceptedResponse{Operation: "sync", Accepted: true})
}

func (s *apiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodPost) {
		return
	}
	err := s.daemon.trigger("refresh", func(ctx context.Context) (any, error) {
		return s.daemon.runner.Refresh(ctx)
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.logger.Info("refresh accepted")
	s.writeJSON(w, http.StatusAccepted, acceptedResponse{Operation: "refresh", Accepted: true})
}

func (s *apiServer) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodPost) {
		return
	}
	err := s.daemon.trigger("update-metadata", func(ctx context.Context) (any, error) {
		return s.daemon.runner.UpdateMetadata(ctx)
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.logger.Info("metadata update accepted")
	s.writeJSON(w, http.StatusAccepted, acceptedResponse{Operation: "update-metadata", Accepted: true})
}

func (s *apiServer) handleFindLinks(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodPost) {
		return
	}
	var req findLinksRequest
	if !s.decodeBody(w, r, maxRequestBody, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	links, err := s.daemon.runner.FindLinks(r.Context(), linkmatch.Query{
		Title:   req.Title,
		Year:    req.Year,
		Season:  req.Season,
		Episode: req.Episode,
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if len(links) == 0 {
		s.writeError(w, http.StatusNotFound, "no suitable links found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (s *apiServer) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodGet) {
		return
	}
	kind, ok := s.optionalKind(w, r)
	if !ok {
		return
	}
	items, err := s.daemon.runner.Store().Search(r.Context(), kind, r.URL.Query().Get("q"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if items == nil {
		items = []*catalog.Item{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleCatalogItem serves /api/catalog/{id} and /api/catalog/{id}/links.
func (s *apiServer) handleCatalogItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/catalog/"), "/")
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid catalog item id")
		return
	}
	store := s.daemon.runner.Store()

	switch sub {
	case "":
		if !requireMethod(s, w, r, http.MethodGet, http.MethodDelete) {
			return
		}
		if r.Method == http.MethodDelete {
			deleted, err := store.DeleteItem(r.Context(), id)
			if err != nil {
				s.writeFailure(w, err)
				return
			}
			if !deleted {
				s.writeError(w, http.StatusNotFound, "catalog item not found")
				return
			}
			s.logger.Info("catalog item deleted", logging.Int64(logging.FieldItemID, id))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		item, err := store.GetItem(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"item": item})
	case "links":
		if !requireMethod(s, w, r, http.MethodPut) {
			return
		}
		var req linksRequest
		if !s.decodeBody(w, r, maxRequestBody, &req) {
			return
		}
		for _, link := range req.Links {
			if strings.TrimSpace(link.FileID) == "" {
				s.writeError(w, http.StatusBadRequest, "link file_id is required")
				return
			}
		}
		if err := store.SetLinks(r.Context(), id, req.EpisodeID, req.Links); err != nil {
			s.writeFailure(w, err)
			return
		}
		item, err := store.GetItem(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.logger.Info("links replaced manually",
			logging.Int64(logging.FieldItemID, id),
			logging.Int64("episode_id", req.EpisodeID),
			logging.Int("links", len(req.Links)),
		)
		s.writeJSON(w, http.StatusOK, map[string]any{"item": item})
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	store := s.daemon.runner.Store()
	if r.Method == http.MethodGet {
		kind, ok := s.optionalKind(w, r)
		if !ok {
			return
		}
		entries, err := store.Blacklist(r.Context(), kind)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		if entries == nil {
			entries = []catalog.BlacklistEntry{}
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
		return
	}

	query := r.URL.Query()
	kind, err := catalog.ParseKind(query.Get("kind"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title := strings.TrimSpace(query.Get("title"))
	if title == "" {
		s.writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	removed, err := store.RemoveBlacklist(r.Context(), kind, title)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if !removed {
		s.writeError(w, http.StatusNotFound, "blacklist entry not found")
		return
	}
	s.logger.Info("blacklist entry removed",
		logging.String(logging.FieldKind, string(kind)),
		logging.String(logging.FieldTitle, title),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodGet, http.MethodPost) {
		return
	}
	store := s.daemon.runner.Store()
	if r.Method == http.MethodPost {
		var req historyRequest
		if !s.decodeBody(w, r, maxRequestBody, &req) {
			return
		}
		if req.ItemID <= 0 {
			s.writeError(w, http.StatusBadRequest, "item_id is required")
			return
		}
		watchedAt := time.Now().UTC()
		if req.WatchedAt != nil {
			watchedAt = *req.WatchedAt
		}
		entry, err := store.AddHistory(r.Context(), req.ItemID, watchedAt)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, entry)
		return
	}

	kind, ok := s.optionalKind(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	entries, err := store.RecentHistory(r.Context(), kind, limit)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if entries == nil {
		entries = []catalog.HistoryEntry{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodGet) {
		return
	}
	backup, err := s.daemon.runner.Store().Export(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="mycinema-backup.json"`)
	if err := catalog.WriteBackup(w, backup); err != nil {
		s.logger.Error("failed to write backup", logging.Error(err))
	}
}

func (s *apiServer) handleImport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodPost) {
		return
	}
	backup, err := catalog.ReadBackup(http.MaxBytesReader(w, r.Body, maxImportBody))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.daemon.runner.Import(r.Context(), backup); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.logger.Info("catalog imported",
		logging.Int("items", len(backup.Items)),
		logging.Int("blacklist", len(backup.Blacklist)),
	)
	s.writeJSON(w, http.StatusOK, map[string]int{"items": len(backup.Items), "blacklist": len(backup.Blacklist)})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(s, w, r, http.MethodGet) {
		return
	}
	hub := s.daemon.stream
	if hub == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"events": []logging.LogEvent{}, "next": 0})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	follow := isTruthy(query.Get("follow"))
	runID := strings.TrimSpace(query.Get("run_id"))
	component := strings.TrimSpace(query.Get("component"))

	var (
		events []logging.LogEvent
		next   uint64
	)
	if isTruthy(query.Get("tail")) && since == 0 && !follow {
		events, next = hub.Tail(limit)
	} else {
		ctx := r.Context()
		if follow {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, 25*time.Second)
			defer cancel()
		}
		fetched, cursor, err := hub.Fetch(ctx, since, limit, follow)
		if err != nil && ctx.Err() == nil {
			s.writeFailure(w, err)
			return
		}
		events, next = fetched, cursor
	}

	filtered := make([]logging.LogEvent, 0, len(events))
	for _, evt := range events {
		if runID != "" && evt.RunID != runID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": filtered, "next": next})
}

// optionalKind parses the kind query parameter; empty means both kinds.
func (s *apiServer) optionalKind(w http.ResponseWriter, r *http.Request) (catalog.Kind, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("kind"))
	if raw == "" {
		return "", true
	}
	kind, err := catalog.ParseKind(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return kind, true
}

func isTruthy(value string) bool {
	return value == "1" || strings.EqualFold(value, "true")
}
