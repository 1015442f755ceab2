package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/Sternrassler/data-service/pkg/cache"
	"github.com/Sternrassler/data-service/pkg/dataset"
	"github.com/Sternrassler/data-service/pkg/snapshot"
)

// handleGetData serves the full snapshot, honoring If-None-Match.
//
//	no snapshot             -> 200 {"message":"cache empty"}
//	If-None-Match == ETag   -> 304, empty body
//	otherwise               -> 200 snapshot, ETag header
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Load(r.Context())
	if errors.Is(err, snapshot.ErrEmpty) {
		writeMessage(w, http.StatusOK, "cache empty")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if cache.MatchesETag(r, snap.ETag) {
		cache.NotModifiedResponses.Inc()
		s.logger.Debug().Str("etag", snap.ETag).Msg("ETag matched, not modified")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", snap.ETag)
	writeRaw(w, http.StatusOK, snap.Data)
}

// handlePutData replaces the snapshot with the request body.
func (s *Server) handlePutData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.Warn().Int64("limit", tooLarge.Limit).Msg("PUT body too large")
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		s.logger.Warn().Err(err).Msg("Failed to read PUT body")
		writeError(w, http.StatusBadRequest, "invalid data")
		return
	}

	snap, err := s.snapshots.Replace(r.Context(), body)
	if errors.Is(err, dataset.ErrInvalidData) {
		s.logger.Warn().
			Err(err).
			Str("size", humanize.Bytes(uint64(len(body)))).
			Msg("Rejected PUT body")
		writeError(w, http.StatusBadRequest, "invalid data")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.logger.Debug().Str("etag", snap.ETag).Msg("Snapshot updated via PUT")
	writeMessage(w, http.StatusOK, "success")
}
