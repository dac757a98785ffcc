package placement

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// CheckpointConfig is the subset of strategy configuration worth
// round-tripping through a checkpoint: whichever of the seed, sigma
// schedule, or batch size the producing strategy used.
type CheckpointConfig struct {
	Seed           uint64  `json:"seed"`
	InitialSigma   float64 `json:"initial_sigma,omitempty"`
	MarginFraction float64 `json:"margin_fraction,omitempty"`
	BatchSize      int     `json:"batch_size,omitempty"`
}

// CheckpointBounds mirrors Bounds in a JSON-friendly shape.
type CheckpointBounds struct {
	Lower        []float64 `json:"lower"`
	Upper        []float64 `json:"upper"`
	DiscreteMask []bool    `json:"discrete_mask"`
}

// Checkpoint is the JSON-serializable optimizer state saved between runs:
// a placement search may be interrupted and resumed without losing its
// strategy identity, the incumbent, or the score history.
type Checkpoint struct {
	SavedAt        string           `json:"saved_at"`
	Strategy       string           `json:"strategy"`
	Generation     int              `json:"generation"`
	PopulationSize int              `json:"population_size"`
	BestScore      float64          `json:"best_score"`
	BestVector     []float64        `json:"best_vector"`
	ScoreHistory   []float64        `json:"score_history"`
	Converged      bool             `json:"converged"`
	Config         CheckpointConfig `json:"config"`
	Bounds         CheckpointBounds `json:"bounds"`
}

// NewCheckpoint captures the current search state. savedAt is injected by
// the caller (e.g. time.Now().UTC().Format(time.RFC3339)) so the package
// itself has no wall-clock dependency. strategy is the tag LoadCheckpoint
// validates a resume attempt against ("cmaes" or "bayesopt").
func NewCheckpoint(
	savedAt, strategy string,
	generation, populationSize int,
	best Vector, bestScore float64,
	history []float64, converged bool,
	cfg CheckpointConfig, bounds Bounds,
) Checkpoint {
	return Checkpoint{
		SavedAt:        savedAt,
		Strategy:       strategy,
		Generation:     generation,
		PopulationSize: populationSize,
		BestScore:      bestScore,
		BestVector:     append([]float64(nil), best.Data...),
		ScoreHistory:   append([]float64(nil), history...),
		Converged:      converged,
		Config:         cfg,
		Bounds: CheckpointBounds{
			Lower:        append([]float64(nil), bounds.Lower...),
			Upper:        append([]float64(nil), bounds.Upper...),
			DiscreteMask: append([]bool(nil), bounds.DiscreteMask...),
		},
	}
}

// Save writes the checkpoint to path as indented JSON.
func (c Checkpoint) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("placement: marshal checkpoint: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("placement: write checkpoint %s: %w", path, err)
	}

	return nil
}

// CheckpointError reports that a serialized optimizer state is missing
// required fields or carries a strategy tag that doesn't match the
// resuming driver. It is fatal to the resume attempt: the caller may
// start a fresh run instead, but the checkpoint itself cannot be trusted.
type CheckpointError struct {
	Path   string
	Reason string
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("placement: checkpoint %s is invalid: %s", e.Path, e.Reason)
}

// LoadCheckpoint reads and decodes a checkpoint previously written by
// Save, then validates its shape and strategy tag. wantStrategy may be
// empty to skip the strategy check. A shape mismatch or strategy
// mismatch returns a *CheckpointError.
func LoadCheckpoint(path, wantStrategy string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("placement: read checkpoint %s: %w", path, err)
	}

	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("placement: parse checkpoint %s: %w", path, err)
	}

	if reason := c.invalidReason(wantStrategy); reason != "" {
		return Checkpoint{}, &CheckpointError{Path: path, Reason: reason}
	}

	return c, nil
}

func (c Checkpoint) invalidReason(wantStrategy string) string {
	switch {
	case c.Strategy == "":
		return "missing strategy tag"
	case wantStrategy != "" && c.Strategy != wantStrategy:
		return fmt.Sprintf("strategy tag %q does not match requested %q", c.Strategy, wantStrategy)
	case len(c.BestVector) == 0:
		return "missing best_vector"
	case len(c.ScoreHistory) == 0:
		return "missing score_history"
	case len(c.Bounds.Lower) == 0 || len(c.Bounds.Upper) == 0 || len(c.Bounds.DiscreteMask) == 0:
		return "missing bounds"
	case len(c.Bounds.Lower) != len(c.Bounds.Upper) || len(c.Bounds.Lower) != len(c.Bounds.DiscreteMask):
		return "bounds lower/upper/discrete_mask length mismatch"
	case len(c.BestVector) != len(c.Bounds.Lower):
		return "best_vector length does not match bounds"
	default:
		return ""
	}
}

// Vector reconstructs the checkpoint's best vector.
func (c Checkpoint) Vector() Vector {
	return Vector{Data: append([]float64(nil), c.BestVector...)}
}

// ToBounds reconstructs the checkpoint's bound set.
func (c Checkpoint) ToBounds() Bounds {
	return Bounds{
		Lower:        append([]float64(nil), c.Bounds.Lower...),
		Upper:        append([]float64(nil), c.Bounds.Upper...),
		DiscreteMask: append([]bool(nil), c.Bounds.DiscreteMask...),
	}
}

// Age reports how long ago the checkpoint was saved, relative to now.
func (c Checkpoint) Age(now time.Time) (time.Duration, error) {
	saved, err := time.Parse(time.RFC3339, c.SavedAt)
	if err != nil {
		return 0, fmt.Errorf("placement: parse checkpoint timestamp %q: %w", c.SavedAt, err)
	}

	return now.Sub(saved), nil
}
