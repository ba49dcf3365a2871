// Package file provides a file-based persistence implementation used for
// development and tests. Entities are stored as one JSON document per row; a
// single store-wide mutex substitutes for the database claim pattern.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pumba68/qatering-sub001/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
	mu   sync.Mutex

	journeyRepo     *JourneyRepository
	participantRepo *ParticipantRepository
	logRepo         *JourneyLogRepository
	segmentRepo     *SegmentRepository
	userRepo        *UserRepository
	templateRepo    *TemplateRepository
	couponRepo      *CouponRepository
	walletRepo      *WalletRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.journeyRepo = &JourneyRepository{store: p}
	p.participantRepo = &ParticipantRepository{store: p}
	p.logRepo = &JourneyLogRepository{store: p}
	p.segmentRepo = &SegmentRepository{store: p}
	p.userRepo = &UserRepository{store: p}
	p.templateRepo = &TemplateRepository{store: p}
	p.couponRepo = &CouponRepository{store: p}
	p.walletRepo = &WalletRepository{store: p}

	return p
}

func (p *Persistence) JourneyRepository() persistence.JourneyRepository {
	return p.journeyRepo
}

func (p *Persistence) ParticipantRepository() persistence.ParticipantRepository {
	return p.participantRepo
}

func (p *Persistence) JourneyLogRepository() persistence.JourneyLogRepository {
	return p.logRepo
}

func (p *Persistence) SegmentRepository() persistence.SegmentRepository {
	return p.segmentRepo
}

func (p *Persistence) UserRepository() persistence.UserRepository {
	return p.userRepo
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) CouponRepository() persistence.CouponRepository {
	return p.couponRepo
}

func (p *Persistence) WalletRepository() persistence.WalletRepository {
	return p.walletRepo
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) dir(kind string) string {
	return filepath.Join(p.root, kind)
}

func (p *Persistence) entityPath(kind, id string) string {
	return filepath.Join(p.root, kind, id+".json")
}

func (p *Persistence) write(kind, id string, entity any) error {
	if err := os.MkdirAll(p.dir(kind), 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	if err := os.WriteFile(p.entityPath(kind, id), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return nil
}

// read decodes one entity; notFound is returned when the file is absent.
func (p *Persistence) read(kind, id string, entity any, notFound error) error {
	data, err := os.ReadFile(p.entityPath(kind, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound
		}

		return fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}

	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal %s %s: %w", kind, id, err)
	}

	return nil
}

// ids lists the entity ids stored under a kind directory. A kind nobody has
// written yet is an empty store, not an error.
func (p *Persistence) ids(kind string) ([]string, error) {
	if _, err := os.Stat(p.dir(kind)); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	entries, err := fs.Glob(os.DirFS(p.dir(kind)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", kind, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, strings.TrimSuffix(entry, ".json"))
	}

	return ids, nil
}
