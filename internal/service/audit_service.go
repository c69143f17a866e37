package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"rentalhub/internal/apierror"
	"rentalhub/internal/dto"
	"rentalhub/internal/model"
	"rentalhub/internal/repository"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// Details above this size are stored zstd-compressed.
const auditCompressThreshold = 4 * 1024

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditEntry is what callers hand to the audit sink.
type AuditEntry struct {
	UserID  *uuid.UUID
	Action  string
	Target  string
	Details interface{}
	IP      string
}

// AuditService persists audit entries. Record never fails the caller:
// problems are logged and swallowed.
type AuditService interface {
	Record(ctx context.Context, entry AuditEntry)
	DecodeDetails(entry *model.AuditLog) ([]byte, error)
	List(ctx context.Context, filter dto.AuditFilter) (*dto.AuditListResponse, error)
}

type auditService struct {
	repo    repository.AuditRepository
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewAuditService(repo repository.AuditRepository) (AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &auditService{repo: repo, encoder: encoder, decoder: decoder}, nil
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	row := &model.AuditLog{UserID: entry.UserID, Action: entry.Action}
	if entry.Target != "" {
		row.Target = &entry.Target
	}
	if entry.IP != "" {
		row.IP = &entry.IP
	}
	if entry.Details != nil {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			log.Error().Err(err).Str("action", entry.Action).Msg("audit: marshal details")
		} else if len(raw) > auditCompressThreshold {
			row.DetailsCompressed = s.encoder.EncodeAll(raw, nil)
		} else {
			row.Details = raw
		}
	}

	if err := s.repo.Create(ctx, row); err != nil {
		log.Error().Err(err).Str("action", entry.Action).Str("target", entry.Target).Msg("audit: write failed")
	}
}

// DecodeDetails returns the JSON details of a stored entry, inflating them
// when they were compressed.
func (s *auditService) DecodeDetails(entry *model.AuditLog) ([]byte, error) {
	if len(entry.DetailsCompressed) == 0 {
		return entry.Details, nil
	}
	out, err := s.decoder.DecodeAll(entry.DetailsCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress audit details: %w", err)
	}
	return out, nil
}

// List pages through the audit trail newest first, inflating compressed
// details.
func (s *auditService) List(ctx context.Context, filter dto.AuditFilter) (*dto.AuditListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultAuditPageSize
	}
	if filter.Limit > maxAuditPageSize {
		filter.Limit = maxAuditPageSize
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apierror.Storage("list audit logs", err)
	}

	resp := &dto.AuditListResponse{
		Data:       make([]dto.AuditLogResponse, 0, len(entries)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}
	for i := range entries {
		e := &entries[i]
		details, err := s.DecodeDetails(e)
		if err != nil {
			return nil, apierror.Storage("decode audit details", err)
		}
		resp.Data = append(resp.Data, dto.AuditLogResponse{
			ID:        e.ID,
			UserID:    e.UserID,
			Action:    e.Action,
			Target:    e.Target,
			Details:   details,
			IP:        e.IP,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp, nil
}
