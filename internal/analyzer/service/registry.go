package service

import (
	"sync"

	"github.com/tc33acecc/StructuraLens/internal/analyzer/models"
)

// ============================================================
// Structure Registry
// ============================================================

// Registry держит рабочие копии структур в памяти: правки применяются
// к копии из реестра и затем сохраняются в репозиторий.
type Registry struct {
	mu         sync.Mutex
	structures map[string]models.Structure // analysisID -> structure
}

func NewRegistry() *Registry {
	return &Registry{
		structures: make(map[string]models.Structure),
	}
}

func (r *Registry) Put(id string, s models.Structure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.structures[id] = s.Clone()
}

func (r *Registry) Get(id string) (models.Structure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.structures[id]
	if !ok {
		return models.Structure{}, false
	}
	return s.Clone(), true
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.structures, id)
}
