package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/linkupapp/linkup/internal/models"
)

func (t *Tx) GetService(ctx context.Context, serviceID uuid.UUID) (*models.Service, error) {
	var service models.Service
	query := `SELECT id, business_id, name FROM services WHERE id = $1`
	if err := t.tx.QueryRow(ctx, query, serviceID).Scan(&service.ID, &service.BusinessID, &service.Name); err != nil {
		return nil, notFound(err)
	}
	return &service, nil
}

func (t *Tx) GetBusiness(ctx context.Context, businessID uuid.UUID) (*models.Business, error) {
	var business models.Business
	query := `SELECT id, owner_profile_id, name FROM businesses WHERE id = $1`
	if err := t.tx.QueryRow(ctx, query, businessID).Scan(&business.ID, &business.OwnerProfileID, &business.Name); err != nil {
		return nil, notFound(err)
	}
	return &business, nil
}

func (t *Tx) GetPassOffering(ctx context.Context, offeringID uuid.UUID) (*models.PassOffering, error) {
	var offering models.PassOffering
	query := `SELECT id, business_id, name, entries, valid_days FROM pass_offerings WHERE id = $1`
	err := t.tx.QueryRow(ctx, query, offeringID).Scan(
		&offering.ID,
		&offering.BusinessID,
		&offering.Name,
		&offering.Entries,
		&offering.ValidDays,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &offering, nil
}

func (t *Tx) GetChannel(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	var channel models.Channel
	query := `SELECT id, creator_profile_id, name FROM channels WHERE id = $1`
	if err := t.tx.QueryRow(ctx, query, channelID).Scan(&channel.ID, &channel.CreatorProfileID, &channel.Name); err != nil {
		return nil, notFound(err)
	}
	return &channel, nil
}

// GetFollowerCount reads the audience counter maintained by the follow
// service. It locks nothing; the value only feeds fee tiering.
func (t *Tx) GetFollowerCount(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT follower_count FROM profiles WHERE id = $1`
	if err := t.tx.QueryRow(ctx, query, profileID).Scan(&count); err != nil {
		return 0, notFound(err)
	}
	return count, nil
}

func (t *Tx) ProfileExists(ctx context.Context, profileID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`
	if err := t.tx.QueryRow(ctx, query, profileID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
