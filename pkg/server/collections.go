package server

import (
	"errors"
	"net/http"

	"github.com/Sternrassler/data-service/pkg/dataset"
	"github.com/Sternrassler/data-service/pkg/snapshot"
)

const msgDataNotFound = "data not found"

// handleCollection serves the whole array of one collection.
func (s *Server) handleCollection(c dataset.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.loadForLookup(w, r)
		if !ok {
			return
		}

		value, err := dataset.CollectionValue(snap.Data, c)
		if err != nil {
			writeError(w, http.StatusNotFound, msgDataNotFound)
			return
		}

		writeRaw(w, http.StatusOK, value)
	}
}

// handleEntry serves the first entry of a collection with the requested id.
func (s *Server) handleEntry(c dataset.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.loadForLookup(w, r)
		if !ok {
			return
		}

		id, ok := dataset.ParseID(r.PathValue("id"))
		if !ok {
			// NaN: the collection must exist, but no entry can match.
			if _, err := dataset.CollectionValue(snap.Data, c); err != nil {
				writeError(w, http.StatusNotFound, msgDataNotFound)
				return
			}
			writeError(w, http.StatusNotFound, dataset.EntryNotFoundMessage(c))
			return
		}

		entry, err := dataset.FindByID(snap.Data, c, id)
		switch {
		case errors.Is(err, dataset.ErrEntryNotFound):
			writeError(w, http.StatusNotFound, dataset.EntryNotFoundMessage(c))
		case err != nil:
			writeError(w, http.StatusNotFound, msgDataNotFound)
		default:
			writeRaw(w, http.StatusOK, entry)
		}
	}
}

// loadForLookup loads the snapshot, answering 404 when the cache is empty.
func (s *Server) loadForLookup(w http.ResponseWriter, r *http.Request) (*snapshot.Snapshot, bool) {
	snap, err := s.snapshots.Load(r.Context())
	if errors.Is(err, snapshot.ErrEmpty) {
		writeError(w, http.StatusNotFound, msgDataNotFound)
		return nil, false
	}
	if err != nil {
		s.internalError(w, r, err)
		return nil, false
	}
	return snap, true
}
