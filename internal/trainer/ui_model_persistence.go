package trainer

import (
	"log"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/form"
)

const maxSessionRecords = 50

// SessionRecord is one completed session kept across runs
type SessionRecord struct {
	ID          string          `json:"id"`
	Exercise    form.ExerciseID `json:"exercise"`
	Target      int             `json:"target"`
	Unit        string          `json:"unit"`
	Frames      int             `json:"frames"`
	Elapsed     float64         `json:"elapsedSeconds"`
	CompletedAt time.Time       `json:"completedAt"`
}

type uiModelPersistenceData struct {
	LastExercise form.ExerciseID `json:"last_exercise"`
	Sessions     []SessionRecord `json:"sessions"`
}

type uiModelPersistence struct {
	filePath string
	data     uiModelPersistenceData
	logger   *log.Logger
}

// DefaultStateFile is ~/.form-trainer/ui_state.json
func DefaultStateFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".form-trainer", "ui_state.json")
}

// newUIModelPersistence loads filePath. An empty filePath keeps everything in memory.
func newUIModelPersistence(filePath string, logger *log.Logger) *uiModelPersistence {
	p := &uiModelPersistence{
		filePath: filePath,
		logger:   logger,
	}
	p.load()
	return p
}

func (p *uiModelPersistence) getLastExercise() form.ExerciseID {
	return p.data.LastExercise
}

func (p *uiModelPersistence) setLastExercise(id form.ExerciseID) {
	if p.data.LastExercise == id {
		return
	}
	p.logger.Printf("UIModelPersistence: setLastExercise %q", id)
	p.data.LastExercise = id
	p.save()
}

// addSession appends record unless a record with the same id exists. Returns true if added.
func (p *uiModelPersistence) addSession(record SessionRecord) bool {
	for _, r := range p.data.Sessions {
		if r.ID == record.ID {
			return false
		}
	}
	p.data.Sessions = append(p.data.Sessions, record)
	if len(p.data.Sessions) > maxSessionRecords {
		p.data.Sessions = p.data.Sessions[len(p.data.Sessions)-maxSessionRecords:]
	}
	p.save()
	return true
}

func (p *uiModelPersistence) sessions() []SessionRecord {
	out := make([]SessionRecord, len(p.data.Sessions))
	copy(out, p.data.Sessions)
	return out
}

func (p *uiModelPersistence) load() {
	p.data = uiModelPersistenceData{}
	if p.filePath == "" {
		return
	}
	raw, err := os.ReadFile(p.filePath)
	if err != nil {
		p.logger.Printf("UIModelPersistence: load %s (no existing file)", p.filePath)
		return
	}
	if err := json.Unmarshal(raw, &p.data); err != nil {
		p.logger.Printf("UIModelPersistence: load %s failed to parse: %v", p.filePath, err)
		p.data = uiModelPersistenceData{}
		return
	}
	p.logger.Printf("UIModelPersistence: load %s -> last %q, %d sessions", p.filePath, p.data.LastExercise, len(p.data.Sessions))
}

func (p *uiModelPersistence) save() {
	if p.filePath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.filePath), 0755); err != nil {
		p.logger.Printf("UIModelPersistence: save mkdir failed: %v", err)
		return
	}
	raw, err := json.MarshalIndent(p.data, "", "  ")
	if err != nil {
		p.logger.Printf("UIModelPersistence: save marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(p.filePath, raw, 0644); err != nil {
		p.logger.Printf("UIModelPersistence: save %s failed: %v", p.filePath, err)
		return
	}
	p.logger.Printf("UIModelPersistence: save %s", p.filePath)
}
