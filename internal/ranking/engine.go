package ranking

import (
	"context"
	"fmt"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/filtering"
	"github.com/spigell/community-ranker/internal/scoring"
	"go.uber.org/zap"
)

// Status tells whether a request produced a shortlist.
type Status string

const (
	StatusRanked        Status = "ranked"
	StatusUnprocessable Status = "unprocessable"
)

// ReasonAllFiltered is reported when the needs leave nothing to rank.
const ReasonAllFiltered = "All communities have been filtered out leaving none to rank. Modify homebuyer needs in request payload."

// UnprocessableError signals that the request was valid but no community qualified.
type UnprocessableError struct {
	Reason string
}

func (e *UnprocessableError) Error() string {
	return e.Reason
}

// Outcome is the result of one ranking request.
type Outcome struct {
	Status              Status
	Reason              string
	TotalCommunities    int
	FilteredCommunities int
	Top                 TopCommunities
}

// Err returns an *UnprocessableError for unprocessable outcomes and nil otherwise.
func (o *Outcome) Err() error {
	if o.Status == StatusUnprocessable {
		return &UnprocessableError{Reason: o.Reason}
	}
	return nil
}

// Response is the envelope returned to the buyer.
type Response struct {
	EmailAddress        string         `json:"email_address"`
	TotalCommunities    int            `json:"n_communities_total"`
	FilteredCommunities int            `json:"n_communities_filtered"`
	Top                 TopCommunities `json:"top_communities"`
}

// NewResponse wraps a ranked outcome for the requester.
func NewResponse(email string, o *Outcome) *Response {
	top := o.Top
	if top == nil {
		top = TopCommunities{}
	}
	return &Response{
		EmailAddress:        email,
		TotalCommunities:    o.TotalCommunities,
		FilteredCommunities: o.FilteredCommunities,
		Top:                 top,
	}
}

// Engine runs the needs filter, the wants scorer and the ranker over one pair
// of community tables.
type Engine struct {
	Schema *community.Schema
	Logger *zap.Logger
	// TopN defaults to DefaultTopN.
	TopN int
	// DisabledFilters names needs filters to skip.
	DisabledFilters []string
}

// Run ranks the communities for one buyer. Tables are not modified. Invalid
// needs or weights are returned as errors; a request that leaves no
// community to rank is an unprocessable Outcome, not an error.
func (e *Engine) Run(ctx context.Context, needs, wants *community.Table, n filtering.Needs, prefs scoring.Preferences) (*Outcome, error) {
	if e.Schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	steps := filtering.Steps()
	for _, name := range e.DisabledFilters {
		filtering.DisableByName(steps, name, "disabled by configuration")
	}

	deps := filtering.Deps{Schema: e.Schema, Logger: logger}
	filtered, err := filtering.FilterNeeds(ctx, deps, needs, n, steps...)
	if err != nil {
		return nil, fmt.Errorf("filter communities: %w", err)
	}

	outcome := &Outcome{
		TotalCommunities:    wants.Len(),
		FilteredCommunities: filtered.Len(),
	}
	if filtered.Len() == 0 {
		logger.Error(ReasonAllFiltered)
		outcome.Status = StatusUnprocessable
		outcome.Reason = ReasonAllFiltered
		return outcome, nil
	}

	scored, err := scoring.New(e.Schema, logger).Score(wants, prefs)
	if err != nil {
		return nil, fmt.Errorf("score communities: %w", err)
	}

	joined := filtered.Join(scored)
	if joined.Len() == 0 {
		outcome.Status = StatusUnprocessable
		outcome.Reason = "None of the filtered communities has amenity data to score."
		logger.Error(outcome.Reason, zap.Strings("filtered_communities", filtered.Keys()))
		return outcome, nil
	}

	ranked := Rank(e.Schema, joined)
	outcome.Status = StatusRanked
	outcome.Top = Compile(e.Schema, ranked, e.TopN)

	logger.Info("ranked communities",
		zap.Int("total", outcome.TotalCommunities),
		zap.Int("filtered", outcome.FilteredCommunities),
		zap.Strings("top_communities", outcome.Top.Names()),
	)

	return outcome, nil
}
