package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/citation-network-service/internal/domain"
	"github.com/helixir/citation-network-service/internal/events"
	"github.com/helixir/citation-network-service/internal/network"
)

const (
	msgPMIDRequired = "PMID parameter is required"
	msgBuildFailed  = "Failed to build citation network"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// networkResponse is NetworkData, optionally extended with debug counters.
type networkResponse struct {
	*domain.NetworkData
	Debug *network.DebugInfo `json:"debug,omitempty"`
}

// networkQuery holds the parsed query parameters of a network request.
type networkQuery struct {
	PMID           string `validate:"required,number,max=20"`
	Type           string `validate:"required,oneof=citations references similar mixed"`
	Limit          int
	Debug          bool
	OpenAccessOnly bool
	Dedupe         bool
}

// getCitationNetwork handles GET /api/v1/citation-network.
func (s *Server) getCitationNetwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, msg := s.parseNetworkQuery(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	req := network.Request{
		SourceID:       query.PMID,
		NetworkType:    domain.NetworkType(query.Type),
		Limit:          query.Limit,
		OpenAccessOnly: query.OpenAccessOnly,
		Dedupe:         query.Dedupe,
	}

	result, err := s.builder.Build(ctx, req)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}

	resp := networkResponse{NetworkData: result.Network}
	if query.Debug {
		debug := result.Debug
		resp.Debug = &debug
	}
	writeJSON(w, http.StatusOK, resp)

	s.publishBuilt(ctx, result.Network, req)
}

// parseNetworkQuery reads and validates query parameters. A non-empty message
// means the request must be rejected with 400.
func (s *Server) parseNetworkQuery(r *http.Request) (networkQuery, string) {
	values := r.URL.Query()

	query := networkQuery{
		PMID:   strings.TrimSpace(values.Get("pmid")),
		Type:   values.Get("type"),
		Limit:  s.config.DefaultLimit,
		Dedupe: s.config.Dedupe,
	}
	if query.PMID == "" {
		return query, msgPMIDRequired
	}
	if query.Type == "" {
		query.Type = string(domain.NetworkTypeMixed)
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return query, "limit must be an integer"
		}
		query.Limit = limit
	}

	var err error
	if query.Debug, err = parseBool(values, "debug", false); err != nil {
		return query, err.Error()
	}
	if query.OpenAccessOnly, err = parseBool(values, "open_access_only", false); err != nil {
		return query, err.Error()
	}
	if query.Dedupe, err = parseBool(values, "dedupe", query.Dedupe); err != nil {
		return query, err.Error()
	}

	if err := s.validate.Struct(query); err != nil {
		return query, validationMessage(err)
	}
	if err := s.validate.Var(query.Limit, fmt.Sprintf("min=1,max=%d", s.config.MaxLimit)); err != nil {
		return query, fmt.Sprintf("limit must be between 1 and %d", s.config.MaxLimit)
	}

	return query, ""
}

// parseBool parses an optional boolean query parameter.
func parseBool(values map[string][]string, name string, fallback bool) (bool, error) {
	raw, ok := values[name]
	if !ok || len(raw) == 0 || raw[0] == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw[0])
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return v, nil
}

// validationMessage converts validator errors to a client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request parameters"
	}

	fe := verrs[0]
	switch fe.Field() {
	case "PMID":
		return "pmid must be a numeric PubMed identifier"
	case "Type":
		return "type must be one of: citations, references, similar, mixed"
	default:
		return fmt.Sprintf("invalid %s", strings.ToLower(fe.Field()))
	}
}

// writeBuildError maps build errors to responses. Input errors are 400;
// everything else is reported as a failed build.
func (s *Server) writeBuildError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "invalid input")
		return
	}

	s.logger.Error().Err(err).Msg("citation network build failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   msgBuildFailed,
		Details: err.Error(),
	})
}

// publishBuilt emits the built event. Failures are logged by the publisher and
// never change the response.
func (s *Server) publishBuilt(ctx context.Context, data *domain.NetworkData, req network.Request) {
	payload := events.NewNetworkBuiltPayload(data, req.OpenAccessOnly, req.Dedupe)
	if err := s.publisher.PublishNetworkBuilt(context.WithoutCancel(ctx), payload); err != nil {
		s.logger.Warn().Err(err).Str("source_id", payload.SourceID).Msg("network event not published")
	}
}
