package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chequetally/backend/src/config"
	"github.com/chequetally/backend/src/logger"
	"github.com/chequetally/backend/src/model"
	"github.com/chequetally/backend/src/models"
	"github.com/chequetally/backend/src/parsers"
	"github.com/chequetally/backend/src/processors"
	"github.com/chequetally/backend/src/security/validation"
	"github.com/patrickmn/go-cache"
)

const (
	ckTallyReport          = "tally_report_session_%s"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// ServiceConfig holds the policy knobs of the reconciliation service.
type ServiceConfig struct {
	BatchPolicy   string
	DefaultSource string
	CacheTTL      time.Duration
}

type reconciliationServiceImpl struct {
	db          *sql.DB
	engine      *processors.Engine
	extractors  parsers.Registry
	reportCache *cache.Cache
	cfg         ServiceConfig
	now         func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock is a per-session mutex shared by every caller currently holding or waiting on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewReconciliationService(
	db *sql.DB,
	engine *processors.Engine,
	extractors parsers.Registry,
	reportCache *cache.Cache,
	cfg ServiceConfig,
) ReconciliationService {
	if cfg.BatchPolicy == "" {
		cfg.BatchPolicy = config.BatchPolicyDrop
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = parsers.SourceLLM
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheExpiration
	}
	return &reconciliationServiceImpl{
		db:          db,
		engine:      engine,
		extractors:  extractors,
		reportCache: reportCache,
		cfg:         cfg,
		now:         time.Now,
		locks:       make(map[string]*sessionLock),
	}
}

// lockSession serializes uploads, tally runs and deletes of one session. The returned
// func releases the lock; the entry is freed once no caller holds or waits on it.
func (s *reconciliationServiceImpl) lockSession(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

func (s *reconciliationServiceImpl) InvalidateSessionCache(sessionID string) {
	s.reportCache.Delete(fmt.Sprintf(ckTallyReport, sessionID))
}

func (s *reconciliationServiceImpl) ownedSession(ctx context.Context, userID, sessionID string) (*models.ReconciliationSession, error) {
	sess, err := model.GetReconciliationSession(ctx, s.db, userID, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrReconciliationSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (s *reconciliationServiceImpl) CreateSession(ctx context.Context, userID, name string) (*models.ReconciliationSession, error) {
	name = validation.SanitizeText(name)
	if err := validation.ValidateStringNotEmpty(name, "session_name"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateStringMaxLength(name, validation.MaxSessionNameLength, "session_name"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sess, err := model.CreateReconciliationSession(ctx, s.db, userID, name)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	logger.FromContext(ctx).Info("Reconciliation session created", "sessionID", sess.ID)
	return sess, nil
}

func (s *reconciliationServiceImpl) ListSessions(ctx context.Context, userID string) ([]models.SessionSummary, error) {
	return model.ListReconciliationSessions(ctx, s.db, userID)
}

func (s *reconciliationServiceImpl) GetSessionDetail(ctx context.Context, userID, sessionID string) (*SessionDetail, error) {
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	company, err := model.ListCompanyCheques(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	bank, err := model.ListBankCheques(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	uploads, err := model.ListUploads(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionDetail{ReconciliationSession: *sess, CompanyCheques: company, BankCheques: bank, Uploads: uploads}, nil
}

func (s *reconciliationServiceImpl) DeleteSession(ctx context.Context, userID, sessionID string) error {
	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := model.DeleteReconciliationSession(ctx, s.db, userID, sessionID); err != nil {
		if errors.Is(err, model.ErrReconciliationSessionNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}
	s.InvalidateSessionCache(sessionID)
	logger.FromContext(ctx).Info("Reconciliation session deleted", "sessionID", sessionID)
	return nil
}

func (s *reconciliationServiceImpl) resolveUpload(req *UploadRequest) (parsers.Extractor, error) {
	req.Mode = strings.ToLower(strings.TrimSpace(req.Mode))
	switch req.Mode {
	case "":
		req.Mode = ModeAppend
	case ModeAppend, ModeReplace:
	default:
		return nil, fmt.Errorf("%w: mode must be '%s' or '%s'", ErrInvalidInput, ModeAppend, ModeReplace)
	}
	if strings.TrimSpace(req.Source) == "" {
		req.Source = s.cfg.DefaultSource
	}
	req.Source = strings.ToLower(strings.TrimSpace(req.Source))
	extractor, err := parsers.GetExtractor(req.Source, s.extractors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: uploaded file has no text", ErrInvalidInput)
	}
	return extractor, nil
}

// applyBatchPolicy decides whether an upload with rejections may be stored.
func (s *reconciliationServiceImpl) applyBatchPolicy(validCount int, rejected []*processors.ExtractionError) error {
	if len(rejected) > 0 && (s.cfg.BatchPolicy == config.BatchPolicyStrict || validCount == 0) {
		return &BatchRejectedError{Rejected: rejected}
	}
	if validCount == 0 {
		return ErrNothingExtracted
	}
	return nil
}

func (s *reconciliationServiceImpl) UploadCompanyCheques(ctx context.Context, req UploadRequest) (*CompanyUploadResult, error) {
	log := logger.FromContext(ctx)
	extractor, err := s.resolveUpload(&req)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedSession(ctx, req.UserID, req.SessionID); err != nil {
		return nil, err
	}

	start := time.Now()
	extraction, err := extractor.ExtractCompany(ctx, req.Text)
	if err != nil {
		log.Error("Company extraction failed", "sessionID", req.SessionID, "source", req.Source, "error", err)
		return nil, err
	}
	valid, rejected := processors.ValidateCompanyCheques(extraction.Cheques)
	log.Info("Company extraction finished", "sessionID", req.SessionID, "source", req.Source,
		"extracted", len(extraction.Cheques), "valid", len(valid), "rejected", len(rejected), "duration", time.Since(start))
	if err := s.applyBatchPolicy(len(valid), rejected); err != nil {
		return nil, err
	}

	unlock := s.lockSession(req.SessionID)
	defer unlock()

	upload := &models.Upload{
		SessionID:       req.SessionID,
		Side:            models.SideCompany,
		Source:          req.Source,
		Filename:        req.Filename,
		Mode:            req.Mode,
		RawText:         req.Text,
		ExtractionNotes: extraction.Notes,
		StoredCount:     len(valid),
		RejectedCount:   len(rejected),
	}
	var stored []models.StoredCompanyCheque
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := model.InsertUpload(ctx, tx, upload); err != nil {
			return err
		}
		if req.Mode == ModeReplace {
			if err := model.DeleteCompanyCheques(ctx, tx, req.SessionID); err != nil {
				return err
			}
		}
		var err error
		if stored, err = model.InsertCompanyCheques(ctx, tx, req.SessionID, upload.ID, valid); err != nil {
			return err
		}
		return model.TouchReconciliationSession(ctx, tx, req.SessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("store company cheques: %w", err)
	}
	s.InvalidateSessionCache(req.SessionID)

	return &CompanyUploadResult{
		Status:           "success",
		UploadID:         upload.ID,
		Mode:             req.Mode,
		ChequesExtracted: len(stored),
		Cheques:          stored,
		Rejected:         nonNil(rejected),
		ExtractionNotes:  extraction.Notes,
	}, nil
}

func (s *reconciliationServiceImpl) UploadBankCheques(ctx context.Context, req UploadRequest) (*BankUploadResult, error) {
	log := logger.FromContext(ctx)
	extractor, err := s.resolveUpload(&req)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedSession(ctx, req.UserID, req.SessionID); err != nil {
		return nil, err
	}

	start := time.Now()
	extraction, err := extractor.ExtractBank(ctx, req.Text)
	if err != nil {
		log.Error("Bank extraction failed", "sessionID", req.SessionID, "source", req.Source, "error", err)
		return nil, err
	}
	valid, rejected := processors.ValidateBankCheques(extraction.Cheques)
	log.Info("Bank extraction finished", "sessionID", req.SessionID, "source", req.Source,
		"extracted", len(extraction.Cheques), "valid", len(valid), "rejected", len(rejected), "duration", time.Since(start))
	if err := s.applyBatchPolicy(len(valid), rejected); err != nil {
		return nil, err
	}

	unlock := s.lockSession(req.SessionID)
	defer unlock()

	upload := &models.Upload{
		SessionID:       req.SessionID,
		Side:            models.SideBank,
		Source:          req.Source,
		Filename:        req.Filename,
		Mode:            req.Mode,
		RawText:         req.Text,
		ExtractionNotes: extraction.Notes,
		StoredCount:     len(valid),
		RejectedCount:   len(rejected),
	}
	var stored []models.StoredBankCheque
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := model.InsertUpload(ctx, tx, upload); err != nil {
			return err
		}
		if req.Mode == ModeReplace {
			if err := model.DeleteBankCheques(ctx, tx, req.SessionID); err != nil {
				return err
			}
		}
		var err error
		if stored, err = model.InsertBankCheques(ctx, tx, req.SessionID, upload.ID, valid); err != nil {
			return err
		}
		return model.TouchReconciliationSession(ctx, tx, req.SessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("store bank cheques: %w", err)
	}
	s.InvalidateSessionCache(req.SessionID)

	return &BankUploadResult{
		Status:           "success",
		UploadID:         upload.ID,
		Mode:             req.Mode,
		ChequesExtracted: len(stored),
		Cheques:          stored,
		Rejected:         nonNil(rejected),
		ExtractionNotes:  extraction.Notes,
	}, nil
}

func (s *reconciliationServiceImpl) RunTally(ctx context.Context, userID, sessionID string) (*models.TallyResult, error) {
	log := logger.FromContext(ctx)
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	var company []models.CompanyChequeRecord
	var bank []models.BankClearedRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		storedCompany, err := model.ListCompanyCheques(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		storedBank, err := model.ListBankCheques(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		company = make([]models.CompanyChequeRecord, 0, len(storedCompany))
		for _, c := range storedCompany {
			company = append(company, c.CompanyChequeRecord)
		}
		bank = make([]models.BankClearedRecord, 0, len(storedBank))
		for _, b := range storedBank {
			bank = append(bank, b.BankClearedRecord)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session records: %w", err)
	}

	start := time.Now()
	result, err := s.engine.Reconcile(processors.ReconcileInput{
		SessionID: sessionID,
		Company:   company,
		Bank:      bank,
		AsOf:      s.now().UTC().Truncate(time.Second),
	})
	if err != nil {
		log.Warn("Tally run failed", "sessionID", sessionID, "error", err)
		return nil, err
	}

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := model.InsertTallyResult(ctx, tx, result); err != nil {
			return err
		}
		return model.TouchReconciliationSession(ctx, tx, sessionID)
	}); err != nil {
		return nil, fmt.Errorf("store tally result: %w", err)
	}

	s.reportCache.Set(fmt.Sprintf(ckTallyReport, sessionID), result, s.cfg.CacheTTL)
	log.Info("Tally run finished", "sessionID", sessionID,
		"cashed", result.TotalCashedCheques, "uncashed", result.TotalUncashedCheques,
		"unmatched", result.TotalUnmatchedBankCheques, "discrepancies", result.DiscrepancyCount,
		"duration", time.Since(start))
	return result, nil
}

func (s *reconciliationServiceImpl) GetTallyReport(ctx context.Context, userID, sessionID string) (*models.TallyResult, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	cacheKey := fmt.Sprintf(ckTallyReport, sessionID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.TallyResult), nil
	}

	result, err := model.GetLatestTallyResult(ctx, s.db, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrTallyResultNotFound) {
			return nil, ErrTallyNotFound
		}
		return nil, fmt.Errorf("load tally result: %w", err)
	}
	s.reportCache.Set(cacheKey, result, s.cfg.CacheTTL)
	return result, nil
}

func (s *reconciliationServiceImpl) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nonNil(r []*processors.ExtractionError) []*processors.ExtractionError {
	if r == nil {
		return []*processors.ExtractionError{}
	}
	return r
}
