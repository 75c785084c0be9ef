// Package planfile loads planned workouts from YAML for offline play.
//
//	name: Park session
//	rest_seconds: 60        # default for every exercise
//	exercises:
//	  - name: Push-ups
//	    sets: 3
//	    reps: 12
//	  - name: Plank
//	    sets: 2
//	    duration_seconds: 45
//	    rest_seconds: 30
package planfile

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/models"
	"gopkg.in/yaml.v3"
)

// Stable ids let an unfinished local session be found again the next time
// the same file is played.
var (
	planNamespace     = uuid.MustParse("7b0e54a5-3a57-4a59-9d0f-0f4d3c1f9a10")
	exerciseNamespace = uuid.MustParse("c1d3b7e2-6f0a-4c8e-8a55-2d9e4b7f1c33")
)

type file struct {
	models.PlannedWorkout `yaml:",inline"`
	RestSeconds           *int `yaml:"rest_seconds"`
}

// Load reads and validates a plan file. Missing ids are derived from the
// plan and exercise names; the owner is set to ownerID.
func Load(path string, ownerID uuid.UUID) (models.PlannedWorkout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.PlannedWorkout{}, fmt.Errorf("reading plan file: %w", err)
	}
	return Parse(data, ownerID)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte, ownerID uuid.UUID) (models.PlannedWorkout, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.PlannedWorkout{}, fmt.Errorf("parsing plan file: %w", err)
	}
	plan := f.PlannedWorkout
	if err := validate(plan); err != nil {
		return models.PlannedWorkout{}, fmt.Errorf("plan %q: %w", plan.Name, err)
	}

	plan.OwnerID = ownerID
	if plan.ID == uuid.Nil {
		plan.ID = uuid.NewSHA1(planNamespace, []byte(plan.Name))
	}
	if plan.GroupID == uuid.Nil {
		plan.GroupID = ownerID
	}

	ordered := true
	for _, ex := range plan.Exercises {
		if ex.OrderIndex != 0 {
			ordered = false
			break
		}
	}
	for i := range plan.Exercises {
		ex := &plan.Exercises[i]
		if ordered {
			ex.OrderIndex = i
		}
		if ex.ExerciseID == uuid.Nil {
			ex.ExerciseID = uuid.NewSHA1(exerciseNamespace, []byte(strings.ToLower(strings.TrimSpace(ex.ExerciseName))))
		}
		if ex.ID == uuid.Nil {
			ex.ID = uuid.NewSHA1(plan.ID, []byte(fmt.Sprintf("%d/%s", i, ex.ExerciseName)))
		}
		if ex.RestSeconds == nil && f.RestSeconds != nil {
			ex.RestSeconds = models.IntPtr(*f.RestSeconds)
		}
	}
	return plan, nil
}

func validate(plan models.PlannedWorkout) error {
	if strings.TrimSpace(plan.Name) == "" {
		return errors.New("name is required")
	}
	if len(plan.Exercises) == 0 {
		return errors.New("at least one exercise is required")
	}
	for i, ex := range plan.Exercises {
		if strings.TrimSpace(ex.ExerciseName) == "" {
			return fmt.Errorf("exercise %d: name is required", i+1)
		}
		if ex.TargetSets < 0 {
			return fmt.Errorf("exercise %q: sets must not be negative", ex.ExerciseName)
		}
		for field, v := range map[string]*int{"reps": ex.TargetReps, "duration_seconds": ex.TargetDurationSeconds, "rest_seconds": ex.RestSeconds} {
			if v != nil && *v < 0 {
				return fmt.Errorf("exercise %q: %s must not be negative", ex.ExerciseName, field)
			}
		}
	}
	return nil
}
