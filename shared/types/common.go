package types

import (
	"time"

	"github.com/stitts-dev/fpl-squad/internal/catalog"
	"github.com/stitts-dev/fpl-squad/internal/optimizer"
	"github.com/stitts-dev/fpl-squad/pkg/analytics"
)

// HealthStatus represents the health status of a service
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// PeriodSelector chooses the scoring column. At most one of the fields
// should be set; they are checked in the order PeriodSum, FirstPeriods,
// AllPeriods, Period.
type PeriodSelector struct {
	Period       string   `json:"period,omitempty"`
	PeriodSum    []string `json:"period_sum,omitempty"`
	PeriodLabel  string   `json:"period_label,omitempty"`
	FirstPeriods int      `json:"first_periods,omitempty"`
	AllPeriods   bool     `json:"all_periods,omitempty"`
}

// SquadConstraints are the per-request parameters of an optimization.
// Nil fields take the service defaults.
type SquadConstraints struct {
	Budget       *float64               `json:"budget,omitempty"`
	Roster       *optimizer.Roster      `json:"roster,omitempty"`
	Restrictions optimizer.Restrictions `json:"restrictions"`
}

// OptimizeRequest asks for one squad. Without players the server's player
// pool is used.
type OptimizeRequest struct {
	Players []catalog.PlayerRecord `json:"players,omitempty"`
	PeriodSelector
	SquadConstraints
}

// BatchOptimizeRequest solves several constraint sets against one player pool
type BatchOptimizeRequest struct {
	Players []catalog.PlayerRecord `json:"players,omitempty"`
	PeriodSelector
	Requests []SquadConstraints `json:"requests" binding:"required,min=1"`
}

// OptimizeResponse carries one selection and its value summary
type OptimizeResponse struct {
	Selection *optimizer.SquadSelection `json:"selection"`
	Summary   *analytics.SquadSummary   `json:"summary"`
	Cached    bool                      `json:"cached"`
}

// BatchOptimizeResponse keeps the order of the batch requests
type BatchOptimizeResponse struct {
	Results []OptimizeResponse `json:"results"`
	Count   int                `json:"count"`
}

// ValidationResponse describes the model a request would produce
type ValidationResponse struct {
	Valid       bool                  `json:"valid"`
	Period      string                `json:"period"`
	Variables   int                   `json:"variables"`
	Constraints int                   `json:"constraints"`
	Unmatched   []optimizer.PlayerKey `json:"unmatched,omitempty"`
}
