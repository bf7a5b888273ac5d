package postgres

import (
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Signals     ports.SignalStore
	Cohorts     ports.CohortRepository
	Experiments ports.ExperimentRepository
	Events      ports.ExperimentEventRepository
	EditorPicks ports.EditorPickRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Signals:     &signalStore{db: db},
		Cohorts:     &cohortRepository{db: db},
		Experiments: &experimentRepository{db: db},
		Events:      &experimentEventRepository{db: db},
		EditorPicks: &editorPickRepository{db: db},
	}
}
