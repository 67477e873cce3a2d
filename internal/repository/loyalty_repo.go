package repository

import (
	"context"
	"errors"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoyaltyRepository persists clients, the movement ledger and the id counter.
// Methods ending in Tx must run inside Transaction; the lock-taking ones
// (LockCounterTx, Find*ForUpdateTx) serialize concurrent writers on that row.
type LoyaltyRepository interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error

	LockCounterTx(tx *gorm.DB, name string) (int, error)
	SetCounterTx(tx *gorm.DB, name string, next int) error
	ClientExistsTx(tx *gorm.DB, clientID string) (bool, error)
	TokenExistsTx(tx *gorm.DB, token string) (bool, error)
	CreateClientTx(tx *gorm.DB, c *model.LoyaltyClient) error
	FindClientForUpdateTx(tx *gorm.DB, clientID string) (*model.LoyaltyClient, error)
	FindClientByTokenForUpdateTx(tx *gorm.DB, token string) (*model.LoyaltyClient, error)
	UpdateClientTx(tx *gorm.DB, c *model.LoyaltyClient) error
	AppendMovementTx(tx *gorm.DB, m *model.LoyaltyMovement) error

	FindClient(ctx context.Context, clientID string) (*model.LoyaltyClient, error)
	FindClientByToken(ctx context.Context, token string) (*model.LoyaltyClient, error)
	ListClients(ctx context.Context, limit int) ([]model.LoyaltyClient, error)
	SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]model.LoyaltyClient, error)
	FindByPhone(ctx context.Context, phone string, limit int) ([]model.LoyaltyClient, error)
	ListMovements(ctx context.Context, clientID string, limit int) ([]model.LoyaltyMovement, error)
	SumMovementDeltas(ctx context.Context, clientID string) (int, error)
	ListClientsWithoutQRLink(ctx context.Context, canonicalPrefix string) ([]model.LoyaltyClient, error)
	UpdateQRLink(ctx context.Context, clientID, qrLink string) error
}

type loyaltyRepo struct{ db *gorm.DB }

func NewLoyaltyRepository(db *gorm.DB) LoyaltyRepository { return &loyaltyRepo{db: db} }

func (r *loyaltyRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// ── Transactional ───────────────────────────────────────────────────────────

// LockCounterTx creates the counter at 1 if absent, then locks the row.
func (r *loyaltyRepo) LockCounterTx(tx *gorm.DB, name string) (int, error) {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Counter{Name: name, Next: 1}).Error
	if err != nil {
		return 0, err
	}
	var c model.Counter
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).First(&c).Error
	return c.Next, err
}

func (r *loyaltyRepo) SetCounterTx(tx *gorm.DB, name string, next int) error {
	return tx.Model(&model.Counter{}).Where("name = ?", name).Update("next", next).Error
}

func (r *loyaltyRepo) ClientExistsTx(tx *gorm.DB, clientID string) (bool, error) {
	var n int64
	err := tx.Model(&model.LoyaltyClient{}).Where("client_id = ?", clientID).Count(&n).Error
	return n > 0, err
}

func (r *loyaltyRepo) TokenExistsTx(tx *gorm.DB, token string) (bool, error) {
	var n int64
	err := tx.Model(&model.LoyaltyClient{}).Where("token = ?", token).Count(&n).Error
	return n > 0, err
}

func (r *loyaltyRepo) CreateClientTx(tx *gorm.DB, c *model.LoyaltyClient) error {
	return tx.Create(c).Error
}

func (r *loyaltyRepo) FindClientForUpdateTx(tx *gorm.DB, clientID string) (*model.LoyaltyClient, error) {
	var c model.LoyaltyClient
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("client_id = ?", clientID).First(&c).Error
	return &c, err
}

func (r *loyaltyRepo) FindClientByTokenForUpdateTx(tx *gorm.DB, token string) (*model.LoyaltyClient, error) {
	var c model.LoyaltyClient
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).First(&c).Error
	return &c, err
}

func (r *loyaltyRepo) UpdateClientTx(tx *gorm.DB, c *model.LoyaltyClient) error {
	return tx.Save(c).Error
}

func (r *loyaltyRepo) AppendMovementTx(tx *gorm.DB, m *model.LoyaltyMovement) error {
	return tx.Create(m).Error
}

// ── Reads ───────────────────────────────────────────────────────────────────

func (r *loyaltyRepo) FindClient(ctx context.Context, clientID string) (*model.LoyaltyClient, error) {
	var c model.LoyaltyClient
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&c).Error
	return &c, err
}

func (r *loyaltyRepo) FindClientByToken(ctx context.Context, token string) (*model.LoyaltyClient, error) {
	var c model.LoyaltyClient
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&c).Error
	return &c, err
}

func (r *loyaltyRepo) ListClients(ctx context.Context, limit int) ([]model.LoyaltyClient, error) {
	var out []model.LoyaltyClient
	err := r.db.WithContext(ctx).Order("updated_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *loyaltyRepo) SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]model.LoyaltyClient, error) {
	var out []model.LoyaltyClient
	err := r.db.WithContext(ctx).
		Where("name_lower LIKE ?", escapeLike(prefix)+"%").
		Order("name_lower ASC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *loyaltyRepo) FindByPhone(ctx context.Context, phone string, limit int) ([]model.LoyaltyClient, error) {
	var out []model.LoyaltyClient
	err := r.db.WithContext(ctx).Where("phone = ?", phone).Limit(limit).Find(&out).Error
	return out, err
}

func (r *loyaltyRepo) ListMovements(ctx context.Context, clientID string, limit int) ([]model.LoyaltyMovement, error) {
	var out []model.LoyaltyMovement
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).
		Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *loyaltyRepo) SumMovementDeltas(ctx context.Context, clientID string) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).Model(&model.LoyaltyMovement{}).
		Select("COALESCE(SUM(points_earned - points_redeemed), 0)").
		Where("client_id = ?", clientID).Scan(&sum).Error
	return sum, err
}

func (r *loyaltyRepo) ListClientsWithoutQRLink(ctx context.Context, canonicalPrefix string) ([]model.LoyaltyClient, error) {
	var out []model.LoyaltyClient
	err := r.db.WithContext(ctx).
		Where("qr_link IS NULL OR qr_link = '' OR qr_link NOT LIKE ?", escapeLike(canonicalPrefix)+"%").
		Order("client_id ASC").Find(&out).Error
	return out, err
}

func (r *loyaltyRepo) UpdateQRLink(ctx context.Context, clientID, qrLink string) error {
	res := r.db.WithContext(ctx).Model(&model.LoyaltyClient{}).
		Where("client_id = ?", clientID).Update("qr_link", qrLink)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is a missing-row error from any repository.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrDocumentNotFound)
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
