// Package analytics provides squad value analysis and service metrics.
package analytics

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/fpl-squad/internal/optimizer"
	"github.com/stitts-dev/fpl-squad/shared/pkg/logger"
)

// SquadCalculator derives value metrics from optimized squads
type SquadCalculator struct {
	logger *logrus.Logger
}

// SquadSummary describes how a squad spends its budget
type SquadSummary struct {
	Players           int                `json:"players"`
	Teams             int                `json:"teams"`
	TotalPrice        float64            `json:"total_price"`
	RemainingBudget   float64            `json:"remaining_budget"`
	BudgetUtilization float64            `json:"budget_utilization"`
	AveragePrice      float64            `json:"average_price"`
	PriceStdDev       float64            `json:"price_std_dev"`
	PointsPerMillion  float64            `json:"points_per_million"`
	SpendByPosition   map[string]float64 `json:"spend_by_position"`
	PointsByPosition  map[string]float64 `json:"points_by_position"`
	BestValue         *PlayerValue       `json:"best_value,omitempty"`
}

// PlayerValue is one player's score per unit of price
type PlayerValue struct {
	Name             string  `json:"name"`
	Team             string  `json:"team"`
	Score            float64 `json:"score"`
	PointsPerMillion float64 `json:"points_per_million"`
}

// NewSquadCalculator creates a calculator logging through the shared logger
func NewSquadCalculator() *SquadCalculator {
	return &SquadCalculator{
		logger: logger.GetLogger(),
	}
}

// Summarize computes the summary of sel against the budget it was chosen under.
// Selections without players produce a zero summary.
func (sc *SquadCalculator) Summarize(sel *optimizer.SquadSelection, budget float64) *SquadSummary {
	summary := &SquadSummary{
		SpendByPosition:  make(map[string]float64),
		PointsByPosition: make(map[string]float64),
		RemainingBudget:  budget,
	}
	if sel == nil || len(sel.Players) == 0 {
		return summary
	}

	prices := make([]float64, len(sel.Players))
	teams := make(map[string]bool)
	for i, p := range sel.Players {
		prices[i] = p.Price
		teams[p.Team] = true
		summary.SpendByPosition[p.Position.String()] += p.Price

		score := scoreAt(sel, i)
		summary.PointsByPosition[p.Position.String()] += score

		value := sc.CalculatePointsPerMillion(score, p.Price)
		if summary.BestValue == nil || value > summary.BestValue.PointsPerMillion {
			summary.BestValue = &PlayerValue{Name: p.Name, Team: p.Team, Score: score, PointsPerMillion: value}
		}
	}

	summary.Players = len(sel.Players)
	summary.Teams = len(teams)
	summary.TotalPrice = sel.TotalPrice
	summary.RemainingBudget = budget - sel.TotalPrice
	if budget > 0 {
		summary.BudgetUtilization = sel.TotalPrice / budget
	}
	summary.AveragePrice = stat.Mean(prices, nil)
	if len(prices) > 1 {
		summary.PriceStdDev = stat.StdDev(prices, nil)
	}
	summary.PointsPerMillion = sc.CalculatePointsPerMillion(sel.Objective, sel.TotalPrice)

	sc.logger.WithFields(logrus.Fields{
		"optimization_id":    sel.ID,
		"points_per_million": summary.PointsPerMillion,
		"budget_utilization": summary.BudgetUtilization,
	}).Debug("Summarized squad")

	return summary
}

// CalculatePointsPerMillion returns score divided by price, zero for free players
func (sc *SquadCalculator) CalculatePointsPerMillion(score, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return score / price
}

func scoreAt(sel *optimizer.SquadSelection, i int) float64 {
	if i < len(sel.Scores) {
		return sel.Scores[i]
	}
	return 0
}
