package service

import (
	"github.com/nearbuy/nearbuy-orders-service/internal/apperrors"
	"github.com/nearbuy/nearbuy-orders-service/internal/models"
)

func validateMethod(method models.ProviderKind) error {
	if !method.Valid() {
		return apperrors.NewValidationError("method", "must be one of upi, razorpay, cashfree")
	}
	return nil
}

func validatePurchase(listing *models.Listing, buyerID string) error {
	if !listing.IsActive {
		return apperrors.NewValidationError("listing_id", "listing is no longer active")
	}
	if listing.OwnerID == buyerID {
		return apperrors.NewValidationError("listing_id", "cannot purchase your own listing")
	}
	return nil
}
