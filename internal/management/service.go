package management

import (
	"context"

	"go.uber.org/zap"

	"github.com/orgdesk/orgdesk/internal/drive"
	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/metrics"
)

// RecordStore is the persistence surface the service needs. *Store satisfies it.
type RecordStore interface {
	Get(ctx context.Context, id int) (*Record, error)
	List(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, r *Record) (*Record, error)
	Update(ctx context.Context, id int, r *Record) (*Record, error)
	Delete(ctx context.Context, id int) error
}

// Service wraps the record store with the photo lifecycle: deleting a record
// first attempts to delete its remote photo, best effort.
type Service struct {
	records    RecordStore
	drive      drive.Service
	driveToken string
}

// NewService creates a record service.
func NewService(records RecordStore, driveSvc drive.Service, driveToken string) *Service {
	return &Service{
		records:    records,
		drive:      driveSvc,
		driveToken: driveToken,
	}
}

// Get returns a single record.
func (s *Service) Get(ctx context.Context, id int) (*Record, error) {
	return s.records.Get(ctx, id)
}

// List returns all records.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.records.List(ctx)
}

// Create inserts a new record.
func (s *Service) Create(ctx context.Context, r *Record) (*Record, error) {
	return s.records.Create(ctx, r)
}

// Update replaces the record with the given ID.
func (s *Service) Update(ctx context.Context, id int, r *Record) (*Record, error) {
	return s.records.Update(ctx, id, r)
}

// Delete removes a record. If the record references a remote photo, the
// photo is deleted first. A photo-delete failure is logged and swallowed;
// record deletion takes priority over photo cleanup.
func (s *Service) Delete(ctx context.Context, id int) error {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}

	if fileID := drive.ExtractFileID(record.Photo); fileID != "" {
		if err := s.drive.Delete(ctx, s.driveToken, fileID); err != nil {
			metrics.RecordPhotoCleanup(false)
			logging.Warn("photo cleanup failed, continuing with record delete",
				zap.Int("record_id", id),
				zap.String("file_id", fileID),
				zap.Error(err))
		} else {
			metrics.RecordPhotoCleanup(true)
		}
	}

	return s.records.Delete(ctx, id)
}
