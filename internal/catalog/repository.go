package catalog

import (
	"context"
	"log/slog"

	"spines/internal/logging"
)

// Repository is the storage contract every catalog backend satisfies.
type Repository interface {
	GetAll(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, bool, error)
	Upsert(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, id string) error
}

// Replacer is implemented by stores that can be rebuilt wholesale.
type Replacer interface {
	Replace(ctx context.Context, entries []Entry) error
}

// MirroredRepository reads from Primary and applies writes to Primary first,
// then best-effort to Mirror.
type MirroredRepository struct {
	Primary Repository
	Mirror  Repository
	Logger  *slog.Logger
}

// NewMirrored wraps primary with a best-effort mirror. A nil mirror returns
// primary unchanged.
func NewMirrored(primary, mirror Repository, logger *slog.Logger) Repository {
	if mirror == nil {
		return primary
	}
	return &MirroredRepository{
		Primary: primary,
		Mirror:  mirror,
		Logger:  logging.NewComponentLogger(logger, "catalog"),
	}
}

func (m *MirroredRepository) GetAll(ctx context.Context) ([]Entry, error) {
	return m.Primary.GetAll(ctx)
}

func (m *MirroredRepository) Get(ctx context.Context, id string) (Entry, bool, error) {
	return m.Primary.Get(ctx, id)
}

func (m *MirroredRepository) Upsert(ctx context.Context, entry Entry) error {
	if err := m.Primary.Upsert(ctx, entry); err != nil {
		return err
	}
	if err := m.Mirror.Upsert(ctx, entry); err != nil {
		m.mirrorFailed("upsert", entry.ID, err)
	}
	return nil
}

func (m *MirroredRepository) Delete(ctx context.Context, id string) error {
	if err := m.Primary.Delete(ctx, id); err != nil {
		return err
	}
	if err := m.Mirror.Delete(ctx, id); err != nil {
		m.mirrorFailed("delete", id, err)
	}
	return nil
}

// Sync rebuilds the mirror from the primary. It returns the number of entries
// written.
func (m *MirroredRepository) Sync(ctx context.Context) (int, error) {
	entries, err := m.Primary.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	if r, ok := m.Mirror.(Replacer); ok {
		if err := r.Replace(ctx, entries); err != nil {
			return 0, err
		}
		return len(entries), nil
	}
	for _, entry := range entries {
		if err := m.Mirror.Upsert(ctx, entry); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

func (m *MirroredRepository) mirrorFailed(op, id string, err error) {
	logging.WarnWithContext(m.Logger, "catalog mirror write failed", "catalog_mirror_failed",
		logging.String("operation", op),
		logging.String("entry_id", id),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run spines catalog sync-mirror"),
		logging.String(logging.FieldImpact, "mirror is behind library.json"),
	)
}
