package postgres

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	errors "github.com/frahmantamala/donation-service/internal"
	"github.com/frahmantamala/donation-service/internal/core/datamodel/donation"
	donationpkg "github.com/frahmantamala/donation-service/internal/donation"
)

type DonationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) donationpkg.RepositoryAPI {
	return &DonationRepository{
		db: db,
	}
}

func (r *DonationRepository) Create(ctx context.Context, d *donation.Donation) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DonationRepository) GetByMerchantOrderID(ctx context.Context, merchantOrderID string) (*donation.Donation, error) {
	var d donation.Donation
	err := r.db.WithContext(ctx).Where("merchant_order_id = ?", merchantOrderID).First(&d).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrDonationNotFound
		}
		return nil, err
	}
	return &d, nil
}

// TransitionStatus is a single conditional UPDATE; two concurrent callbacks
// cannot both see a non-terminal row.
func (r *DonationRepository) TransitionStatus(ctx context.Context, merchantOrderID, status, reference string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&donation.Donation{}).
		Where("merchant_order_id = ? AND status NOT IN ?", merchantOrderID, donation.TerminalStatuses).
		Updates(map[string]interface{}{
			"status":     status,
			"reference":  reference,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *DonationRepository) CreateIfAbsent(ctx context.Context, d *donation.Donation) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "merchant_order_id"}},
			DoNothing: true,
		}).
		Create(d)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *DonationRepository) List(ctx context.Context, filter donationpkg.ListFilter) ([]*donation.Donation, int64, error) {
	filtered := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&donation.Donation{})
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var donations []*donation.Donation
	err := filtered().
		Order("created_at DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&donations).Error
	if err != nil {
		return nil, 0, err
	}
	return donations, total, nil
}

func (r *DonationRepository) Summary(ctx context.Context) (*donationpkg.Summary, error) {
	var row struct {
		Count       int64
		TotalAmount int64
	}
	err := r.db.WithContext(ctx).
		Model(&donation.Donation{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount").
		Where("status IN ?", donation.SucceededStatuses).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	summary := &donationpkg.Summary{
		Count:       row.Count,
		TotalAmount: row.TotalAmount,
	}
	if row.Count > 0 {
		summary.AverageAmount = float64(row.TotalAmount) / float64(row.Count)
	}
	return summary, nil
}
