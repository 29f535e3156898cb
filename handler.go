package cnx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ConnectorHandler mounts a string-keyed connector on a chi router under a
// pluralized resource path (resource "task" serves /tasks). It maps the
// connector error taxonomy onto HTTP statuses: absent fetches become 404,
// unimplemented capabilities 501, backend failures 502. HTTPConnector is the
// client counterpart of this protocol.
type ConnectorHandler[T any] struct {
	resource  string
	connector Keyed[T]
	logger    Logger
}

// HandlerOption mutates a ConnectorHandler during construction.
type HandlerOption[T any] func(*ConnectorHandler[T]) error

// WithHandlerLogger installs the logger used for backend failures.
func WithHandlerLogger[T any](logger Logger) HandlerOption[T] {
	return func(h *ConnectorHandler[T]) error {
		if logger == nil {
			return errors.New("nil logger provided")
		}
		h.logger = logger
		return nil
	}
}

func NewConnectorHandler[T any](resource string, connector Keyed[T], opts ...HandlerOption[T]) (*ConnectorHandler[T], error) {
	if resource == "" {
		return nil, errors.New("connector handler: resource name is required")
	}
	if connector == nil {
		return nil, errors.New("connector handler: connector is required")
	}
	h := &ConnectorHandler[T]{
		resource:  strings.ToLower(resource),
		connector: connector,
		logger:    NewNoopLogger(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// BasePath returns the collection path the handler mounts under.
func (h *ConnectorHandler[T]) BasePath() string {
	return "/" + Pluralize(h.resource)
}

// RegisterRoutes mounts the connector routes on the given router.
func (h *ConnectorHandler[T]) RegisterRoutes(router chi.Router) {
	router.Route(h.BasePath(), func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.fetch)
		r.Put("/{id}", h.save)
		r.Delete("/{id}", h.remove)
	})
}

func (h *ConnectorHandler[T]) fetch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, found, err := h.connector.Fetch(r.Context(), id)
	if err != nil {
		h.respondOpError(w, r, OpFetch, err)
		return
	}
	if !found {
		RespondError(w, http.StatusNotFound, h.resource+" not found")
		return
	}
	RespondSuccess(w, item)
}

func (h *ConnectorHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	var items []T
	var err error
	if q := r.URL.Query().Get("q"); q != "" {
		items, err = h.connector.List(r.Context(), q)
	} else {
		items, err = h.connector.List(r.Context())
	}
	if err != nil {
		h.respondOpError(w, r, OpList, err)
		return
	}
	// Empty collections serialize as [], not null.
	if items == nil {
		items = []T{}
	}
	RespondSuccess(w, items)
}

func (h *ConnectorHandler[T]) save(w http.ResponseWriter, r *http.Request) {
	var value T
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		RespondError(w, http.StatusBadRequest, "invalid "+h.resource+" payload")
		return
	}
	if err := h.connector.Save(r.Context(), chi.URLParam(r, "id"), value); err != nil {
		h.respondOpError(w, r, OpSave, err)
		return
	}
	Respond(w, http.StatusNoContent, nil)
}

func (h *ConnectorHandler[T]) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.connector.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondOpError(w, r, OpRemove, err)
		return
	}
	Respond(w, http.StatusNoContent, nil)
}

func (h *ConnectorHandler[T]) respondOpError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, ErrUnimplemented) {
		RespondError(w, http.StatusNotImplemented, err.Error())
		return
	}
	h.logger.Error("connector operation failed",
		"request_id", RequestIDFrom(r.Context()),
		"resource", h.resource,
		"op", op,
		"error", err.Error(),
	)
	RespondError(w, http.StatusBadGateway, err.Error())
}
