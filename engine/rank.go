package engine

import (
	"strings"

	"github.com/memoriahq/memoria-go/memory"
)

// Ranking boost weights. Raw cosine similarity is the base; lexical,
// pillar, entity, category and importance signals are added on top and
// the final score is capped at 1.0.
const (
	contentMatchBoost  = 0.3  // literal query substring in content
	pillarContentBoost = 0.2  // pillar name in content, per pillar
	pillarEntityBoost  = 0.15 // pillar name in an entity string, per pillar
	pillarBoostCap     = 0.4
	entityMatchBoost   = 0.2 // query substring in an entity string
	categoryMatchBoost = 0.1 // query substring in a category tag
	importanceWeight   = 0.1
)

// boostScore blends the raw similarity with the multi-factor boosts.
// queryLower must already be lowercased.
func boostScore(base float64, queryLower string, rec *memory.MemoryRecord, pillars []memory.Pillar) float64 {
	score := base
	contentLower := strings.ToLower(rec.Content)

	if strings.Contains(contentLower, queryLower) {
		score += contentMatchBoost
	}

	var pillarBoost float64
	for _, p := range pillars {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		if strings.Contains(contentLower, name) {
			pillarBoost += pillarContentBoost
		}
		for _, ent := range rec.Entities {
			if strings.Contains(strings.ToLower(ent), name) {
				pillarBoost += pillarEntityBoost
				break
			}
		}
	}
	if pillarBoost > pillarBoostCap {
		pillarBoost = pillarBoostCap
	}
	score += pillarBoost

	for _, ent := range rec.Entities {
		if strings.Contains(strings.ToLower(ent), queryLower) {
			score += entityMatchBoost
			break
		}
	}
	for _, cat := range rec.Categories {
		if strings.Contains(strings.ToLower(cat), queryLower) {
			score += categoryMatchBoost
			break
		}
	}

	score += rec.Importance * importanceWeight

	if score > 1.0 {
		score = 1.0
	}
	return score
}
