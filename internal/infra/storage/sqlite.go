package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stock_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists rules, holdings and instrument metadata in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at path.
func NewStorage(path string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(
		&domain.Rule{},
		&domain.Holding{},
		&domain.Instrument{},
		&domain.Setting{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// ======================================================================================
// Rule Operations
// ======================================================================================

// CreateRule inserts a new rule.
func (s *Storage) CreateRule(rule *domain.Rule) error {
	return s.db.Create(rule).Error
}

// GetRule retrieves a rule by id, scoped to its owner.
func (s *Storage) GetRule(owner, id string) (*domain.Rule, error) {
	var rule domain.Rule
	err := s.db.First(&rule, "id = ? AND owner = ?", id, owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &rule, err
}

// ListRules returns an owner's rules in creation order.
func (s *Storage) ListRules(owner string) ([]domain.Rule, error) {
	var rules []domain.Rule
	err := s.db.
		Where("owner = ?", owner).
		Order("created_at, id").
		Find(&rules).Error
	return rules, err
}

// ListActiveRules returns every active rule in creation order. This is
// the point-in-time read that seeds an evaluation pass: a concurrent
// create either fully appears or not at all.
func (s *Storage) ListActiveRules(ctx context.Context) ([]domain.Rule, error) {
	var rules []domain.Rule
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at, id").
		Find(&rules).Error
	return rules, err
}

// UpdateRule replaces a rule's user-editable fields in one atomic
// write. band_state is engine-owned and never touched here.
func (s *Storage) UpdateRule(rule *domain.Rule) (*domain.Rule, error) {
	res := s.db.Model(&domain.Rule{}).
		Where("id = ? AND owner = ?", rule.ID, rule.Owner).
		Updates(map[string]interface{}{
			"symbol":     rule.Symbol,
			"min_price":  rule.MinPrice,
			"max_price":  rule.MaxPrice,
			"quantity":   rule.Quantity,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrRuleNotFound
	}
	return s.GetRule(rule.Owner, rule.ID)
}

// DeleteRule removes a rule; it disappears from evaluation atomically
// with the delete.
func (s *Storage) DeleteRule(owner, id string) error {
	res := s.db.Where("id = ? AND owner = ?", id, owner).Delete(&domain.Rule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// SetRuleActive toggles a rule's active flag. The band state is left
// untouched, so reactivation resumes hysteresis where it froze.
func (s *Storage) SetRuleActive(owner, id string, active bool) (*domain.Rule, error) {
	res := s.db.Model(&domain.Rule{}).
		Where("id = ? AND owner = ?", id, owner).
		Update("active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrRuleNotFound
	}
	return s.GetRule(owner, id)
}

// ApplyTransition commits one band transition: the rule's band_state is
// flipped with a compare-and-set and the holding mutation runs in the
// same transaction. A CAS miss (rule deleted, deactivated, or the
// transition already applied) returns (false, nil) and changes nothing.
func (s *Storage) ApplyTransition(ctx context.Context, ev *domain.MatchEvent, from, to domain.BandState) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Rule{}).
			Where("id = ? AND band_state = ? AND active = ?", ev.RuleID, from, true).
			Update("band_state", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // CAS miss: nothing to do
		}

		switch ev.Type {
		case domain.EventAcquired:
			h := domain.Holding{
				Owner:     ev.Owner,
				Symbol:    ev.Symbol,
				Name:      ev.Name,
				Price:     ev.Price,
				Quantity:  ev.Quantity,
				AutoAdded: true,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "owner"}, {Name: "symbol"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"quantity":   gorm.Expr("quantity + ?", ev.Quantity),
					"updated_at": time.Now(),
				}),
			}).Create(&h).Error; err != nil {
				return err
			}
		case domain.EventReleased:
			// Only engine-acquired rows are auto-released; a row the owner
			// added to (or removed) manually is left alone.
			if err := tx.Where("owner = ? AND symbol = ? AND auto_added = ?",
				ev.Owner, ev.Symbol, true).
				Delete(&domain.Holding{}).Error; err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	return applied, err
}

// ======================================================================================
// Holding Operations
// ======================================================================================

// ListHoldings returns an owner's holdings sorted by symbol.
func (s *Storage) ListHoldings(owner string) ([]domain.Holding, error) {
	var holdings []domain.Holding
	err := s.db.Where("owner = ?", owner).Order("symbol").Find(&holdings).Error
	return holdings, err
}

// AddHolding upserts a manual holding. Manual additions always clear
// AutoAdded so a later band exit never releases them.
func (s *Storage) AddHolding(h *domain.Holding) error {
	h.AutoAdded = false
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "symbol"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       h.Name,
			"price":      h.Price,
			"auto_added": false,
			"quantity":   gorm.Expr("quantity + ?", h.Quantity),
			"updated_at": time.Now(),
		}),
	}).Create(h).Error
}

// RemoveHolding deletes a holding row. Removing a row that does not
// exist is a no-op.
func (s *Storage) RemoveHolding(owner, symbol string) error {
	return s.db.Where("owner = ? AND symbol = ?", owner, symbol).
		Delete(&domain.Holding{}).Error
}

// ClearHoldings removes all of an owner's holdings (checkout).
func (s *Storage) ClearHoldings(owner string) error {
	return s.db.Where("owner = ?", owner).Delete(&domain.Holding{}).Error
}

// ======================================================================================
// Instrument Operations
// ======================================================================================

// UpsertInstrument creates or updates instrument metadata
func (s *Storage) UpsertInstrument(ins *domain.Instrument) error {
	return s.db.Save(ins).Error
}

// GetInstrument retrieves instrument metadata by symbol
func (s *Storage) GetInstrument(symbol string) (*domain.Instrument, error) {
	var ins domain.Instrument
	err := s.db.First(&ins, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &ins, err
}

// GetAllInstruments retrieves all instruments
func (s *Storage) GetAllInstruments() ([]domain.Instrument, error) {
	var instruments []domain.Instrument
	err := s.db.Order("symbol").Find(&instruments).Error
	return instruments, err
}

// ======================================================================================
// Setting Operations
// ======================================================================================

// SaveSetting saves an app-level key/value setting
func (s *Storage) SaveSetting(key, value string) error {
	setting := domain.Setting{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&setting).Error
}

// LoadSettings loads all settings as a map
func (s *Storage) LoadSettings() (map[string]string, error) {
	var settings []domain.Setting
	if err := s.db.Find(&settings).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, st := range settings {
		result[st.Key] = st.Value
	}
	return result, nil
}
