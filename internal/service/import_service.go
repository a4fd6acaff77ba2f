package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/staff-records-api/internal/dto"
	"github.com/noah-isme/staff-records-api/internal/models"
	"github.com/noah-isme/staff-records-api/internal/repository"
	appErrors "github.com/noah-isme/staff-records-api/pkg/errors"
)

const utf8BOM = "\ufeff"

type importProfileStore interface {
	ExistsByStaffID(ctx context.Context, staffID string) (bool, error)
	Create(ctx context.Context, profile *models.StaffProfile) error
	UpdateEducationFlags(ctx context.Context, id string, flags models.EducationFlags) error
}

type childCreator interface {
	Create(ctx context.Context, ownerID string, records models.ChildRecords) error
}

// ImportService loads staff profiles from the CSV layout produced by the export.
type ImportService struct {
	profiles importProfileStore
	children childCreator
	derived  *DerivedStateService
	tx       transactor
	audit    auditRecorder
	metrics  *MetricsService
	cache    *CacheService
	logger   *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(profiles importProfileStore, children childCreator, derived *DerivedStateService, tx transactor, audit auditSink, metrics *MetricsService, cache *CacheService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		profiles: profiles,
		children: children,
		derived:  derived,
		tx:       tx,
		audit:    auditRecorder{sink: audit, logger: logger},
		metrics:  metrics,
		cache:    cache,
		logger:   logger,
	}
}

type rowError struct {
	msg string
}

func (e *rowError) Error() string { return e.msg }

// Import reads every data row of r. Row failures are collected in the result; only an unreadable
// file is returned as an error.
func (s *ImportService) Import(ctx context.Context, r io.Reader, actor Actor) (*dto.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, appErrors.Clone(appErrors.ErrInvalidImportFile, "import file has no header row")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidImportFile.Code, appErrors.ErrInvalidImportFile.Status, "import file could not be read")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.ReplaceAll(h, utf8BOM, ""))
	}

	result := &dto.ImportResult{Errors: []string{}}
	rowNum := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			result.TotalRowsProcessed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行處理錯誤: 無法解析此行", rowNum))
			continue
		}
		if blankLine(record) {
			continue
		}
		result.TotalRowsProcessed++

		row := make(csvRow, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.ReplaceAll(record[i], utf8BOM, "")
			}
		}
		if err := s.importRow(ctx, rowNum, row, actor); err != nil {
			var re *rowError
			if errors.As(err, &re) {
				result.Errors = append(result.Errors, re.msg)
			} else {
				s.logger.Warn("import row failed", zap.Int("row", rowNum), zap.Error(err))
				result.Errors = append(result.Errors, fmt.Sprintf("第%d行處理錯誤: 無法儲存員工資料", rowNum))
			}
			continue
		}
		result.ImportedCount++
	}

	failed := len(result.Errors)
	s.metrics.RecordImport(result.ImportedCount, failed)
	if result.ImportedCount > 0 {
		_ = s.cache.Invalidate(ctx, cachePatternStaff)
	}
	s.audit.record(ctx, actor, models.AuditActionImport, models.ResourceStaffProfile, "",
		fmt.Sprintf("imported %d of %d rows, %d errors", result.ImportedCount, result.TotalRowsProcessed, failed))
	if failed > 0 {
		s.logger.Warn("staff import finished with errors", zap.Int("imported", result.ImportedCount), zap.Int("errors", failed))
	} else {
		s.logger.Info("staff import finished", zap.Int("imported", result.ImportedCount))
	}
	return result, nil
}

func blankLine(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (s *ImportService) importRow(ctx context.Context, rowNum int, row csvRow, actor Actor) error {
	profile := profileFromRow(row)
	if profile.StaffID == "" || profile.StaffName == "" {
		return &rowError{fmt.Sprintf("第%d行: 缺少必要欄位 (staff_id, staff_name)", rowNum)}
	}
	duplicate := &rowError{fmt.Sprintf("第%d行: 員工編號'%s'已存在", rowNum, profile.StaffID)}

	exists, err := s.profiles.ExistsByStaffID(ctx, profile.StaffID)
	if err != nil {
		return err
	}
	if exists {
		return duplicate
	}
	profile.CreatedBy = actor.userRef()
	profile.SeniorityDescription = models.ZeroSeniority
	children := childrenFromRow(row)

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Create(ctx, profile); err != nil {
			if errors.Is(err, repository.ErrDuplicateStaffID) {
				return duplicate
			}
			return err
		}
		if err := s.children.Create(ctx, profile.ID, children); err != nil {
			return err
		}
		state, err := s.derived.RecomputeAll(ctx, profile.ID)
		if err != nil {
			return err
		}
		if flags, overridden := flagOverrides(row, state.Flags); overridden {
			return s.profiles.UpdateEducationFlags(ctx, profile.ID, flags)
		}
		return nil
	})
}
